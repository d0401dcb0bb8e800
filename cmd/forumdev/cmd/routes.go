package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	ui "github.com/atdiar/rtforum"
	"github.com/atdiar/rtforum/config"
	"github.com/atdiar/rtforum/internal/app"
	"github.com/atdiar/rtforum/views"
)

var (
	routesFile string
	routesTOML bool
)

// routesCmd represents the routes command
var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "routes lists the routes of the client",
	Long: `
		routes lists the routes of the client with the
		access they require. A route file given with --routes is checked
		against the views of the client. With --toml the table is printed
		as a route file.
	`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := app.Routes(views.Deps{}, routesFile)
		if err != nil {
			return err
		}
		if routesTOML {
			return config.WriteRoutes(cmd.OutOrStdout(), table.Routes(), func(r ui.Route) string { return r.Name })
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PATTERN\tVIEW\tACCESS")
		for _, r := range table.Routes() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", r.Pattern, r.Name, r.Access)
		}
		return w.Flush()
	},
}

func init() {
	routesCmd.Flags().StringVar(&routesFile, "routes", "", "route file (default: the embedded table)")
	routesCmd.Flags().BoolVar(&routesTOML, "toml", false, "print the table as a route file")
	rootCmd.AddCommand(routesCmd)
}
