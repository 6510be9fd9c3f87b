package main

import (
	"net/http"

	"github.com/urfave/cli/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/fxnlabs/gpuprim/internal/config"
	"github.com/fxnlabs/gpuprim/internal/logger"
	"github.com/fxnlabs/gpuprim/internal/server"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve workloads over HTTP",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "port", Usage: "Override server.listenPort"},
		},
		Action: func(c *cli.Context) error {
			cfg := *appConfig(c)
			if c.IsSet("port") {
				cfg.Server.ListenPort = c.Int("port")
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			zapLogger, err := logger.New(cfg.Logger.Verbosity)
			if err != nil {
				return err
			}
			defer zapLogger.Sync()

			app := newServeApp(&cfg, zapLogger.Named("node"))
			if err := app.Err(); err != nil {
				return err
			}
			app.Run()
			return nil
		},
	}
}

func newServeApp(cfg *config.Config, log *zap.Logger) *fx.App {
	return fx.New(
		fx.Supply(cfg, log),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		server.Module,
		fx.Invoke(func(*http.Server) {}),
	)
}
