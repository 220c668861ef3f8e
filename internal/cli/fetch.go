package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"finrouter/internal/coordinator"
	"finrouter/internal/fetcher"
	"finrouter/internal/models"
	"finrouter/internal/router"
)

// batchResult is the json/yaml form of one coordinated request
type batchResult struct {
	Key     string          `json:"key" yaml:"key"`
	Records []models.Record `json:"records,omitempty" yaml:"records,omitempty"`
	Error   string          `json:"error,omitempty" yaml:"error,omitempty"`
}

// fetchCommand creates the "fetch" command.
func (c *CLI) fetchCommand() *cobra.Command {
	var (
		provider    string
		params      map[string]string
		creds       map[string]string
		blocking    bool
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "fetch <category>...",
		Short: "Fetch records for one or more categories",
		Long: `Fetch records for one or more categories.

Parameters apply to every category unless prefixed with the category name:
-p gdp.country=US only reaches the gdp request. Several categories are
fetched concurrently and a failure of one does not stop the others.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, r, err := c.setup()
			if err != nil {
				return err
			}

			requests := make([]router.Request, len(args))
			for i, category := range args {
				requests[i] = router.Request{
					Category:    category,
					Provider:    provider,
					Params:      paramsFor(category, params),
					Credentials: models.Credentials(creds),
				}
			}

			if len(requests) == 1 {
				var records []models.Record
				if blocking {
					records, err = r.FetchBlocking(cmd.Context(), requests[0])
				} else {
					records, err = r.Fetch(cmd.Context(), requests[0])
				}
				if err != nil {
					return err
				}
				c.Logger.Debug("fetched", "category", requests[0].Category, "records", len(records))
				return c.render(records, func() ([]string, [][]string) { return recordTable(records) })
			}

			coord := coordinator.New(r, requests,
				coordinator.WithMaxConcurrency(concurrency),
				coordinator.WithBlocking(blocking))
			results, err := coord.Run(cmd.Context())
			if err != nil {
				return err
			}
			if err := c.renderBatch(results); err != nil {
				return err
			}

			if failed := countFailed(results); failed > 0 {
				return fmt.Errorf("%d of %d requests failed", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "provider to fetch from (default: the category default)")
	cmd.Flags().StringToStringVarP(&params, "param", "p", nil, "query parameter as key=value, optionally <category>.key=value")
	cmd.Flags().StringToStringVar(&creds, "cred", nil, "credential as field=value (default: <PROVIDER>_<FIELD> environment variables)")
	cmd.Flags().BoolVar(&blocking, "blocking", false, "use the blocking fetch path")
	cmd.Flags().IntVar(&concurrency, "concurrency", coordinator.DefaultMaxConcurrency, "maximum concurrent requests when fetching several categories")

	return cmd
}

func (c *CLI) renderBatch(results []fetcher.Result) error {
	if c.format == formatTable {
		coordinator.Print(c.out, results)
		return nil
	}

	out := make([]batchResult, len(results))
	for i, res := range results {
		out[i] = batchResult{Key: res.Key, Records: res.Records}
		if res.Error != nil {
			out[i].Error = res.Error.Error()
		}
	}
	return c.render(out, nil)
}

func countFailed(results []fetcher.Result) int {
	n := 0
	for _, res := range results {
		if res.Error != nil {
			n++
		}
	}
	return n
}

// paramsFor selects the parameters of category: unprefixed keys, plus keys
// prefixed with "<category>." with the prefix removed. Keys scoped to other
// categories are dropped.
func paramsFor(category string, raw map[string]string) models.Params {
	params := models.Params{}
	for key, value := range raw {
		scope, name, scoped := strings.Cut(key, ".")
		switch {
		case !scoped:
			if _, set := params[key]; !set {
				params[key] = value
			}
		case scope == category:
			params[name] = value
		}
	}
	return params
}
