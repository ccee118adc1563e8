// Command native-host is the native messaging helper started by the browser.
// It answers exactly one request on stdin and exits. stdout carries the
// protocol, so logs go to stderr.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/iamzifei/bookmark-is-learned/internal/config"
	"github.com/iamzifei/bookmark-is-learned/internal/nativehost"
)

func main() {
	level := slog.LevelWarn
	if os.Getenv("BTL_VERBOSE") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	var local nativehost.LocalModel
	if settings, err := config.NewSource("").Snapshot(); err != nil {
		slog.Warn("failed to read settings, local model disabled", "error", err)
	} else {
		local = nativehost.LocalModel{
			URL:    settings.LocalModelURL,
			Model:  settings.LocalModelName,
			APIKey: settings.LocalModelToken,
		}
	}

	handler, err := nativehost.NewHandler(local)
	if err != nil {
		slog.Error("failed to start helper", "error", err)
		os.Exit(1)
	}

	if err := handler.Serve(context.Background(), os.Stdin, os.Stdout); err != nil {
		slog.Error("failed to handle request", "error", err)
		os.Exit(1)
	}
}
