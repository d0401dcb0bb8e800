package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/yosssi/gohtml"

	ui "github.com/atdiar/rtforum"
	"github.com/atdiar/rtforum/drivers/headless"
	"github.com/atdiar/rtforum/internal/app"
	"github.com/atdiar/rtforum/internal/logging"
)

var (
	renderAPI     string
	renderToken   string
	renderPage    string
	renderOut     string
	renderRaw     bool
	renderTimeout time.Duration
)

// renderCmd represents the render command
var renderCmd = &cobra.Command{
	Use:   "render <path>",
	Short: "render prints the page the client displays at a path",
	Long: `
		render runs the client against a headless document, navigates to the
		given path and prints the resulting page once the router is idle.
		Data is fetched from the API server given with --api. A token given
		with --token renders the page as an authenticated user.
	`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		level := logLevel
		if level == "" {
			level = "warn"
		}
		logger, err := logging.New(cmd.ErrOrStderr(), level, "text")
		if err != nil {
			return err
		}

		page := headless.DefaultPage
		if renderPage != "" {
			b, err := os.ReadFile(renderPage)
			if err != nil {
				return err
			}
			page = string(b)
		}
		document, err := headless.NewDocument(page, args[0])
		if err != nil {
			return err
		}
		document.Logger = logger

		forum, err := app.New(document, app.Settings{
			API:    renderAPI,
			Token:  renderToken,
			Logger: logger,
		}, ui.WithRegistries(ui.NewConnectionRegistry(), ui.NewTimerRegistry()))
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), renderTimeout)
		defer cancel()
		errc := make(chan error, 1)
		go func() { errc <- forum.Router.ListenAndServe(ctx) }()
		if err := forum.Router.Wait(ctx); err != nil {
			return fmt.Errorf("rendering %s: %w", args[0], err)
		}
		cancel()
		<-errc
		forum.Router.Connections.ReleaseAll()
		forum.Router.Timers.ReleaseAll()

		out := cmd.OutOrStdout()
		if renderOut != "" {
			f, err := os.Create(renderOut)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}
		markup := document.HTML()
		if !renderRaw {
			markup = gohtml.Format(markup)
		}
		_, err = io.WriteString(out, markup+"\n")
		return err
	},
}

func init() {
	renderCmd.Flags().StringVar(&renderAPI, "api", "http://localhost:8081", "API server")
	renderCmd.Flags().StringVar(&renderToken, "token", "", "access token of the session")
	renderCmd.Flags().StringVar(&renderPage, "page", "", "host page (default: a minimal page with the navbar and app containers)")
	renderCmd.Flags().StringVarP(&renderOut, "output", "o", "", "output file (default: standard output)")
	renderCmd.Flags().BoolVar(&renderRaw, "raw", false, "do not indent the output")
	renderCmd.Flags().DurationVar(&renderTimeout, "timeout", 10*time.Second, "maximum time to wait for the page")
	rootCmd.AddCommand(renderCmd)
}
