package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/jonxmitchell/ark-asa-shop-config-generator/internal/app"
	"github.com/jonxmitchell/ark-asa-shop-config-generator/internal/config"
	"github.com/jonxmitchell/ark-asa-shop-config-generator/internal/infrastructure"
	"github.com/jonxmitchell/ark-asa-shop-config-generator/internal/license"
	"github.com/jonxmitchell/ark-asa-shop-config-generator/internal/security"
)

var errKeyRejected = errors.New("license key rejected")

func newCLI(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "shopconfig",
		Usage:     config.AppName,
		Version:   config.AppVersion,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a YAML config file",
				EnvVars: []string{config.EnvPrefix + "_CONFIG_FILE"},
			},
		},
		Action: serveAction,
		Commands: []*cli.Command{
			serveCommand(),
			deviceIDCommand(),
			verifyCommand(),
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "start the local command API (default)",
		Action: serveAction,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "override the listen port",
			},
		},
	}
}

func serveAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if port := c.Int("port"); port > 0 {
		cfg.Server.Port = port
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer infrastructure.CloseLogFile()

	crash := infrastructure.NewCrashReporter(cfg.Paths.CrashFile, logger)
	return crash.Run("serve", func() error {
		ctx := c.Context
		application, err := app.NewApplication(ctx, cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize application: %w", err)
		}
		return application.Run(ctx)
	})
}

func deviceIDCommand() *cli.Command {
	return &cli.Command{
		Name:  "device-id",
		Usage: "print the id license keys must be issued for",
		Action: func(c *cli.Context) error {
			fm := security.NewFingerprintManager(quietLogger(c))
			_, err := fmt.Fprintln(c.App.Writer, fm.DeviceID())
			return err
		},
	}
}

func verifyCommand() *cli.Command {
	return &cli.Command{
		Name:      "verify",
		Usage:     "check a license key against this device without storing it",
		ArgsUsage: "<license-key>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "device",
				Usage: "verify for another device id instead of this one",
			},
		},
		Action: func(c *cli.Context) error {
			raw := strings.TrimSpace(c.Args().First())
			if raw == "" {
				return errors.New("a license key is required")
			}
			deviceID := c.String("device")
			if deviceID == "" {
				deviceID = security.NewFingerprintManager(quietLogger(c)).DeviceID()
			}

			tok, outcome := license.NewVerifier(license.DefaultKey()).Check(raw, deviceID, license.CalendarDate(time.Now()))
			if !outcome.Valid() {
				fmt.Fprintf(c.App.Writer, "invalid (%s): %s\n", outcome.Reason, outcome.Message())
				return errKeyRejected
			}
			days := license.DaysBetween(time.Now(), tok.ExpiresOn)
			fmt.Fprintf(c.App.Writer, "valid until %s (%d days, %s)\n",
				tok.ExpiresOn.Format(time.DateOnly), days, license.StatusFor(days))
			return nil
		},
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	if path := c.String("config"); path != "" {
		if err := os.Setenv(config.EnvPrefix+"_CONFIG_FILE", path); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// quietLogger keeps helper commands' stdout clean for scripting
func quietLogger(c *cli.Context) *slog.Logger {
	return infrastructure.NewJSONLogger(c.App.ErrWriter, &slog.HandlerOptions{Level: slog.LevelWarn})
}
