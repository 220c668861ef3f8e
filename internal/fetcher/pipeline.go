package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"finrouter/internal/bridge"
	"finrouter/internal/models"
)

// DefaultTimeout bounds every extraction that has no explicit timeout
const DefaultTimeout = 30 * time.Second

// Stage is a step of the per-call state machine
type Stage string

const (
	StageIdle           Stage = "idle"
	StageValidating     Stage = "validating"
	StageAuthenticating Stage = "authenticating"
	StageExtracting     Stage = "extracting"
	StageNormalizing    Stage = "normalizing"
	StageDone           Stage = "done"
	StageFailed         Stage = "failed"
)

// Runner is the type-erased view of a Pipeline kept by the registry
type Runner interface {
	Category() string
	Provider() string
	Mode() Mode
	QueryType() reflect.Type
	DataType() reflect.Type

	// Prepare runs the validation stage and binds the resulting query to a Call
	Prepare(params models.Params) (Call, error)

	SelfTest(ctx context.Context, params models.Params, creds models.Credentials) (Report, error)
}

// Call is a validated query waiting for credentials and extraction
type Call interface {
	// Run extracts on the caller's goroutine, honoring ctx
	Run(ctx context.Context, creds models.Credentials) ([]models.Record, error)
	// RunBlocking extracts to completion without depending on ctx cancellation
	RunBlocking(ctx context.Context, creds models.Credentials) ([]models.Record, error)
}

// Option configures a Pipeline
type Option func(*options)

type options struct {
	timeout  time.Duration
	executor *bridge.Executor
	logger   *slog.Logger
}

// WithTimeout bounds every extraction of the pipeline
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithExecutor sets the executor used to drive context-native extraction from the blocking path
func WithExecutor(e *bridge.Executor) Option {
	return func(o *options) {
		if e != nil {
			o.executor = e
		}
	}
}

// WithLogger sets the logger for stage transitions
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Pipeline binds a Fetcher to its category and provider and orchestrates its
// three stages. It holds no per-call state and is safe for concurrent use.
type Pipeline[Q any, R any, D models.Record] struct {
	category string
	provider string
	fetcher  Fetcher[Q, R, D]
	mode     Mode

	extract         func(context.Context, Q, models.Credentials) (R, error)
	extractBlocking func(Q, models.Credentials) (R, error)

	opts options
}

// New binds f to (category, provider).
// It fails with a contract error unless f implements exactly one of
// Extractor or BlockingExtractor.
func New[Q any, R any, D models.Record](category, provider string, f Fetcher[Q, R, D], opts ...Option) (*Pipeline[Q, R, D], error) {
	if f == nil {
		return nil, NewContractError(fmt.Sprintf("%s/%s: fetcher is nil", category, provider))
	}

	p := &Pipeline[Q, R, D]{
		category: category,
		provider: provider,
		fetcher:  f,
		opts: options{
			timeout: DefaultTimeout,
			logger:  slog.Default(),
		},
	}
	for _, opt := range opts {
		opt(&p.opts)
	}
	if p.opts.executor == nil {
		p.opts.executor = bridge.Default()
	}

	ctxExt, isCtx := f.(Extractor[Q, R])
	blkExt, isBlk := f.(BlockingExtractor[Q, R])
	switch {
	case isCtx && isBlk:
		return nil, NewContractError(fmt.Sprintf("%s/%s: fetcher implements both Extract and ExtractBlocking", category, provider))
	case isCtx:
		p.mode = ModeContext
		p.extract = ctxExt.Extract
	case isBlk:
		p.mode = ModeBlocking
		p.extractBlocking = blkExt.ExtractBlocking
	default:
		return nil, NewContractError(fmt.Sprintf("%s/%s: fetcher implements neither Extract nor ExtractBlocking", category, provider))
	}

	return p, nil
}

// Category returns the category key the pipeline serves
func (p *Pipeline[Q, R, D]) Category() string { return p.category }

// Provider returns the provider key the pipeline serves
func (p *Pipeline[Q, R, D]) Provider() string { return p.provider }

// Mode returns the native extraction style
func (p *Pipeline[Q, R, D]) Mode() Mode { return p.mode }

// QueryType returns the declared QueryParams type
func (p *Pipeline[Q, R, D]) QueryType() reflect.Type { return reflect.TypeFor[Q]() }

// DataType returns the declared Data type
func (p *Pipeline[Q, R, D]) DataType() reflect.Type { return reflect.TypeFor[D]() }

// FetchAll validates params, extracts with ctx and normalizes the payload.
// A failing stage stops the pipeline and no records are returned.
func (p *Pipeline[Q, R, D]) FetchAll(ctx context.Context, params models.Params, creds models.Credentials) ([]D, error) {
	q, err := p.transformQuery(params)
	if err != nil {
		return nil, err
	}
	return p.execute(ctx, q, creds, false)
}

// FetchAllBlocking is FetchAll on the blocking path: the extraction runs to
// completion under the pipeline timeout regardless of ctx cancellation.
func (p *Pipeline[Q, R, D]) FetchAllBlocking(ctx context.Context, params models.Params, creds models.Credentials) ([]D, error) {
	q, err := p.transformQuery(params)
	if err != nil {
		return nil, err
	}
	return p.execute(ctx, q, creds, true)
}

// Prepare implements Runner
func (p *Pipeline[Q, R, D]) Prepare(params models.Params) (Call, error) {
	q, err := p.transformQuery(params)
	if err != nil {
		return nil, err
	}
	return &call[Q, R, D]{p: p, query: q}, nil
}

type call[Q any, R any, D models.Record] struct {
	p     *Pipeline[Q, R, D]
	query Q
}

func (c *call[Q, R, D]) Run(ctx context.Context, creds models.Credentials) ([]models.Record, error) {
	records, err := c.p.execute(ctx, c.query, creds, false)
	return erase(records), err
}

func (c *call[Q, R, D]) RunBlocking(ctx context.Context, creds models.Credentials) ([]models.Record, error) {
	records, err := c.p.execute(ctx, c.query, creds, true)
	return erase(records), err
}

func erase[D models.Record](records []D) []models.Record {
	if records == nil {
		return nil
	}
	out := make([]models.Record, len(records))
	for i, r := range records {
		out[i] = r
	}
	return out
}

func (p *Pipeline[Q, R, D]) transformQuery(params models.Params) (Q, error) {
	p.stage(StageValidating)
	q, err := p.fetcher.TransformQuery(params)
	if err != nil {
		p.stage(StageFailed, "error", err)
		var fe *FetchError
		if errors.As(err, &fe) {
			return q, err
		}
		return q, NewValidationError(fmt.Sprintf("%s/%s: %v", p.category, p.provider, err), err)
	}
	return q, nil
}

func (p *Pipeline[Q, R, D]) execute(ctx context.Context, q Q, creds models.Credentials, blocking bool) ([]D, error) {
	p.stage(StageExtracting, "blocking", blocking)
	raw, err := p.extractWith(ctx, q, creds, blocking)
	if err != nil {
		err = p.extractError(err)
		p.stage(StageFailed, "error", err)
		return nil, err
	}

	p.stage(StageNormalizing)
	records, err := p.transform(q, raw)
	if err != nil {
		p.stage(StageFailed, "error", err)
		return nil, err
	}

	p.stage(StageDone, "records", len(records))
	return records, nil
}

func (p *Pipeline[Q, R, D]) extractWith(ctx context.Context, q Q, creds models.Credentials, blocking bool) (R, error) {
	var zero R

	switch {
	case p.mode == ModeContext && !blocking:
		ctx, cancel := context.WithTimeout(ctx, p.opts.timeout)
		defer cancel()
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		raw, err := p.extract(ctx, q, creds)
		if err == nil && ctx.Err() != nil {
			// The deadline won the race; never normalize a late payload
			return zero, ctx.Err()
		}
		return raw, err

	case p.mode == ModeContext && blocking:
		return bridge.Block(ctx, p.opts.executor, func(wctx context.Context) (R, error) {
			wctx, cancel := context.WithTimeout(wctx, p.opts.timeout)
			defer cancel()
			return p.extract(wctx, q, creds)
		})

	case p.mode == ModeBlocking && blocking:
		return p.extractBlocking(q, creds)

	default:
		ctx, cancel := context.WithTimeout(ctx, p.opts.timeout)
		defer cancel()
		return bridge.Await(ctx, func() (R, error) {
			return p.extractBlocking(q, creds)
		})
	}
}

// extractError gives a kind to extraction failures that do not carry one
func (p *Pipeline[Q, R, D]) extractError(err error) error {
	var fe *FetchError
	switch {
	case errors.As(err, &fe):
		if fe.Provider == "" {
			return fe.WithProvider(p.provider)
		}
		return err
	case errors.Is(err, bridge.ErrReentrant):
		return &FetchError{
			Type:     ErrorTypeReentrant,
			Provider: p.provider,
			Message:  "use the context-aware fetch from inside a blocking fetch",
			Cause:    err,
		}
	case errors.Is(err, context.DeadlineExceeded):
		return NewTimeoutError(err).WithProvider(p.provider)
	case errors.Is(err, context.Canceled):
		return NewCanceledError(err).WithProvider(p.provider)
	default:
		fe := NewProviderError(0, err.Error())
		fe.Cause = err
		return fe.WithProvider(p.provider)
	}
}

func (p *Pipeline[Q, R, D]) transform(q Q, raw R) ([]D, error) {
	records, err := p.fetcher.Transform(q, raw)
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			if fe.Provider == "" {
				return nil, fe.WithProvider(p.provider)
			}
			return nil, err
		}
		shape := NewDataShapeError(err.Error())
		shape.Cause = err
		return nil, shape.WithProvider(p.provider)
	}

	models.SortRecords(records)
	if err := models.CheckOrdered(records); err != nil {
		return nil, NewDataShapeError(err.Error()).WithProvider(p.provider)
	}
	return records, nil
}

func (p *Pipeline[Q, R, D]) stage(s Stage, args ...any) {
	attrs := append([]any{"category", p.category, "provider", p.provider, "stage", s}, args...)
	p.opts.logger.Debug("fetch stage", attrs...)
}

// Report is the outcome of a SelfTest run
type Report struct {
	Category   string        `json:"category" yaml:"category"`
	Provider   string        `json:"provider" yaml:"provider"`
	Mode       Mode          `json:"mode" yaml:"mode"`
	DataType   string        `json:"data_type" yaml:"data_type"`
	Records    int           `json:"records" yaml:"records"`
	Mismatches []string      `json:"mismatches,omitempty" yaml:"mismatches,omitempty"`
	Elapsed    time.Duration `json:"elapsed" yaml:"elapsed"`
}

// OK reports whether every record matched the declared Data type
func (r Report) OK() bool { return len(r.Mismatches) == 0 }

// SelfTest runs the full pipeline and checks every record against the
// declared Data type field by field: the dynamic type must match and fields
// not marked omitempty must be set.
func (p *Pipeline[Q, R, D]) SelfTest(ctx context.Context, params models.Params, creds models.Credentials) (Report, error) {
	start := time.Now()
	want := p.DataType()
	report := Report{
		Category: p.category,
		Provider: p.provider,
		Mode:     p.mode,
		DataType: want.String(),
	}

	records, err := p.FetchAll(ctx, params, creds)
	report.Elapsed = time.Since(start)
	if err != nil {
		return report, err
	}

	report.Records = len(records)
	for i, rec := range records {
		report.Mismatches = append(report.Mismatches, checkRecord(i, rec, want)...)
	}
	return report, nil
}

func checkRecord(i int, rec models.Record, want reflect.Type) []string {
	v := reflect.ValueOf(rec)
	if want.Kind() == reflect.Interface {
		if !v.IsValid() {
			return []string{fmt.Sprintf("record %d: nil", i)}
		}
		want = v.Type()
	}
	if v.Type() != want {
		return []string{fmt.Sprintf("record %d: got %s, want %s", i, v.Type(), want)}
	}
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return []string{fmt.Sprintf("record %d: nil", i)}
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}

	var out []string
	t := v.Type()
	for f := 0; f < t.NumField(); f++ {
		field := t.Field(f)
		if !field.IsExported() || strings.Contains(field.Tag.Get("json"), "omitempty") {
			continue
		}
		if v.Field(f).IsZero() {
			out = append(out, fmt.Sprintf("record %d: field %s is empty", i, field.Name))
		}
	}
	return out
}
