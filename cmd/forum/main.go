//go:build js && wasm

// Command forum is the browser client of the forum, compiled to WebAssembly.
// It reads its settings from the meta tags of the host page:
//
//	<meta name="forum:app-name" content="Forum">
//	<meta name="forum:api" content="http://localhost:8081">
//	<meta name="forum:ws" content="ws://localhost:8081/ws">
//	<meta name="forum:images" content="localhost:8081">
//	<meta name="forum:log-level" content="debug">
//
// The API and websocket addresses default to the origin of the page.
package main

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/atdiar/rtforum/internal/app"
	"github.com/atdiar/rtforum/internal/logging"

	doc "github.com/atdiar/rtforum/drivers/js"
)

func setting(document *doc.Document, name, fallback string) string {
	if v, ok := document.Meta("forum:" + name); ok && v != "" {
		return v
	}
	return fallback
}

func main() {
	document := doc.GetDocument()

	logger, err := logging.New(os.Stdout, setting(document, "log-level", "info"), "text")
	if err != nil {
		slog.Error("configuring logs", "err", err)
		logger = slog.Default()
	}
	slog.SetDefault(logger)
	document.Logger = logger

	// without explicit addresses the API is reached through the server of
	// the page
	origin := document.Origin()
	forum, err := app.New(document, app.Settings{
		AppName:   setting(document, "app-name", ""),
		API:       setting(document, "api", origin),
		WS:        setting(document, "ws", "ws"+strings.TrimPrefix(origin, "http")+"/ws"),
		Images:    setting(document, "images", ""),
		Persister: doc.LocalStorage("forum:"),
		Logger:    logger,
	})
	if err != nil {
		logger.Error("starting forum client", "err", err)
		os.Exit(1)
	}
	if err := forum.Router.ListenAndServe(context.Background()); err != nil {
		logger.Error("router stopped", "err", err)
	}
}
