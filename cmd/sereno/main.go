// sereno is a local psychoeducation assistant backend.
// Serves a guardrailed chat API in front of a local inference server, with a
// terminal client and dataset tooling as companion commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zyfalo/sereno/internal/chat"
	"github.com/zyfalo/sereno/internal/config"
	"github.com/zyfalo/sereno/internal/guardrail"
	"github.com/zyfalo/sereno/internal/history"
	"github.com/zyfalo/sereno/internal/llm"
	"github.com/zyfalo/sereno/internal/logger"
	"github.com/zyfalo/sereno/internal/server"
	"github.com/zyfalo/sereno/internal/session"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// version is set by ldflags at build time.
var version = "dev"

func main() {
	root := &cobra.Command{
		Use:     "sereno",
		Short:   "Psychoeducation assistant backend",
		Version: version,
	}
	root.AddCommand(serveCmd(), chatCmd(), datasetCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				logger.L.Error("failed to load configuration", "error", err)
				return err
			}
			logger.SetLevel(cfg.Log.Level)

			store := session.NewStore()
			defer store.Clear()

			guard := guardrail.NewCoordinator(cfg.Guardrails)
			generator := llm.NewGenerator(llm.NewClient(cfg.Model), cfg.Model)

			var archive *history.Archive
			var recorder chat.Recorder
			if cfg.History.Enabled {
				archive = history.New(cfg.History.DBPath)
				defer archive.Close()
				recorder = archive
			}

			engine := chat.New(store, guard, generator, recorder, cfg.Session)

			e := echo.New()
			e.HideBanner = true
			e.Use(middleware.Recover())
			server.NewHandler(engine, archive).RegisterRoutes(e)

			addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
			logger.L.Info("starting server", "address", addr)
			return e.Start(addr)
		},
	}
}
