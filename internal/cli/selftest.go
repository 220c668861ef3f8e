package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"finrouter/internal/models"
	"finrouter/internal/router"
)

// selftestCommand creates the "selftest" command.
func (c *CLI) selftestCommand() *cobra.Command {
	var (
		provider string
		params   map[string]string
		creds    map[string]string
	)

	cmd := &cobra.Command{
		Use:   "selftest <category>",
		Short: "Fetch live data and check every record against the category model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, r, err := c.setup()
			if err != nil {
				return err
			}

			report, err := r.SelfTest(cmd.Context(), router.Request{
				Category:    args[0],
				Provider:    provider,
				Params:      paramsFor(args[0], params),
				Credentials: models.Credentials(creds),
			})
			if err != nil {
				return err
			}

			err = c.render(report, func() ([]string, [][]string) {
				status := styleSuccess.Render("ok")
				if !report.OK() {
					status = styleError.Render(fmt.Sprintf("%d mismatches", len(report.Mismatches)))
				}
				rows := [][]string{
					{"category", report.Category},
					{"provider", report.Provider},
					{"mode", string(report.Mode)},
					{"data type", report.DataType},
					{"records", strconv.Itoa(report.Records)},
					{"elapsed", report.Elapsed.Round(time.Millisecond).String()},
					{"status", status},
				}
				for _, m := range report.Mismatches {
					rows = append(rows, []string{"mismatch", m})
				}
				return []string{"CHECK", "RESULT"}, rows
			})
			if err != nil {
				return err
			}

			if !report.OK() {
				return fmt.Errorf("self test of %s/%s failed", report.Category, report.Provider)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "provider to test (default: the category default)")
	cmd.Flags().StringToStringVarP(&params, "param", "p", nil, "query parameter as key=value")
	cmd.Flags().StringToStringVar(&creds, "cred", nil, "credential as field=value")

	return cmd
}
