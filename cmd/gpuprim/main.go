package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/fxnlabs/gpuprim/internal/config"
	"github.com/fxnlabs/gpuprim/internal/logger"
)

const defaultConfigPath = "config.yaml"

func main() {
	var configPath string
	var rootLogger *zap.Logger

	app := &cli.App{
		Name:  "gpuprim",
		Usage: "Run parallel primitives (scan, sort, transpose, reduce, matmul) on a compute device",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Value:       defaultConfigPath,
				Usage:       "Path to config.yaml; defaults apply when the file is missing",
				EnvVars:     []string{"GPUPRIM_CONFIG"},
				Destination: &configPath,
			},
			&cli.StringFlag{
				Name:  "backend",
				Usage: "Override device.backend (auto, host, opencl)",
			},
		},
		Before: func(c *cli.Context) error {
			cfg, err := loadConfig(configPath, c.IsSet("config"))
			if err != nil {
				return err
			}
			if backend := c.String("backend"); backend != "" {
				cfg.Device.Backend = backend
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			zapLogger, err := logger.NewConsole(cfg.Logger.Verbosity)
			if err != nil {
				return err
			}
			rootLogger = zapLogger.Named("cli")
			c.App.Metadata = map[string]any{
				"config": cfg,
				"logger": rootLogger,
			}
			return nil
		},
		After: func(c *cli.Context) error {
			if rootLogger != nil {
				_ = rootLogger.Sync()
			}
			return nil
		},
		Commands: []*cli.Command{
			scanCommand(),
			sortCommand(),
			transposeCommand(),
			reduceCommand(),
			matmulCommand(),
			infoCommand(),
			initCommand(),
			serveCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		if rootLogger != nil {
			rootLogger.Fatal("failed to run app", zap.Error(err))
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
}

// loadConfig falls back to defaults when the default path does not exist.
// A path given explicitly must exist.
func loadConfig(path string, explicit bool) (*config.Config, error) {
	cfg, err := config.LoadConfig(path)
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		return config.Default(), nil
	}
	return cfg, err
}

func appConfig(c *cli.Context) *config.Config {
	return c.App.Metadata["config"].(*config.Config)
}

func appLogger(c *cli.Context) *zap.Logger {
	return c.App.Metadata["logger"].(*zap.Logger)
}
