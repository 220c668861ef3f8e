package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"finrouter/internal/router"
)

// categoriesCommand creates the "categories" command.
func (c *CLI) categoriesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "categories [category]",
		Short: "List data categories, or the fetchers serving one category",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, r, err := c.setup()
			if err != nil {
				return err
			}

			if len(args) == 1 {
				info, err := r.CategoryInfo(args[0])
				if err != nil {
					return err
				}
				return c.render(info, func() ([]string, [][]string) {
					rows := make([][]string, len(info.Fetchers))
					for i, f := range info.Fetchers {
						def := ""
						if f.Provider == info.DefaultProvider {
							def = "yes"
						}
						rows[i] = []string{f.Provider, string(f.Mode), strconv.Itoa(f.Priority), def, f.Description}
					}
					return []string{"PROVIDER", "MODE", "PRIORITY", "DEFAULT", "DESCRIPTION"}, rows
				})
			}

			var infos []router.CategoryInfo
			for _, name := range r.ListCategories() {
				info, err := r.CategoryInfo(name)
				if err != nil {
					return err
				}
				infos = append(infos, info)
			}
			return c.render(infos, func() ([]string, [][]string) {
				rows := make([][]string, len(infos))
				for i, info := range infos {
					providers := make([]string, len(info.Fetchers))
					for j, f := range info.Fetchers {
						providers[j] = f.Provider
					}
					rows[i] = []string{info.Name, info.DefaultProvider, strings.Join(providers, ", "), info.DataType, info.Description}
				}
				return []string{"CATEGORY", "DEFAULT", "PROVIDERS", "DATA", "DESCRIPTION"}, rows
			})
		},
	}
}

// providersCommand creates the "providers" command.
func (c *CLI) providersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List providers with their categories and required credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, r, err := c.setup()
			if err != nil {
				return err
			}

			infos := r.Providers()
			return c.render(infos, func() ([]string, [][]string) {
				rows := make([][]string, len(infos))
				for i, p := range infos {
					rows[i] = []string{p.Name, strings.Join(p.Categories, ", "), strings.Join(p.Credentials, ", "), p.Website}
				}
				return []string{"PROVIDER", "CATEGORIES", "CREDENTIALS", "WEBSITE"}, rows
			})
		},
	}
}
