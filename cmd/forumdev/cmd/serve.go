package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/atdiar/rtforum/config"
	"github.com/atdiar/rtforum/internal/devserver"
	"github.com/atdiar/rtforum/internal/logging"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "serve runs the dev server",
	Long: `
		serve runs the dev server. The host page, the WebAssembly binary and
		the static files are served from the static directory; /api, /ws and
		/images are proxied to the API server. Unless --watch=false is given,
		browsers reload when a file of the static directory changes.
	`,
	RunE: func(cmd *cobra.Command, args []string) error {
		v := viper.New()
		for key, flag := range map[string]string{
			"addr":   "addr",
			"api":    "api",
			"static": "static",
			"wasm":   "wasm",
			"index":  "index",
			"watch":  "watch",
		} {
			if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
				return err
			}
		}
		if logLevel != "" {
			v.Set("log.level", logLevel)
		}

		bootstrap, err := logging.New(cmd.ErrOrStderr(), "info", "text")
		if err != nil {
			return err
		}
		cfg, err := config.LoadDevServer(bootstrap, v, cfgFile)
		if err != nil {
			return err
		}
		logger, err := logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			return err
		}

		srv, err := devserver.New(cfg, logger)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return srv.ListenAndServe(ctx)
	},
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "listen address")
	serveCmd.Flags().String("api", "http://localhost:8081", "API server the /api, /ws and /images paths are proxied to")
	serveCmd.Flags().String("static", "web", "static directory")
	serveCmd.Flags().String("wasm", "web/app.wasm", "WebAssembly binary")
	serveCmd.Flags().String("index", "web/index.html", "host page")
	serveCmd.Flags().Bool("watch", true, "reload browsers on changes in the static directory")
	rootCmd.AddCommand(serveCmd)
}
