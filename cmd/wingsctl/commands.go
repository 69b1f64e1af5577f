package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/aussiebroadwan/wingsclient/internal/app"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "wingsctl",
		Usage:   "Inspect and talk to a node agent",
		Version: app.BuildVersion,
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			diagnoseCommand(),
			resolveCommand(),
			systemCommand(),
			tokenCommand(),
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "YAML config file",
			EnvVars: []string{"WINGS_CONFIG"},
		},
		&cli.StringFlag{Name: "host", Usage: "node host name or address"},
		&cli.IntFlag{Name: "port", Usage: "node port (default 8080)"},
		&cli.StringFlag{Name: "scheme", Usage: "http or https (default https)"},
		&cli.StringFlag{Name: "token", Usage: "node token, prefer WINGS_TOKEN"},
		&cli.IntFlag{Name: "max-retries", Usage: "retries per call for transient failures"},
		&cli.BoolFlag{Name: "insecure", Usage: "skip TLS certificate verification"},
		&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
		&cli.StringFlag{Name: "log-format", Usage: "json or text"},
	}
}

// flagKeys maps global flags to config keys.
var flagKeys = map[string]string{
	"host":        "host",
	"port":        "port",
	"scheme":      "scheme",
	"token":       "token",
	"max-retries": "max_retries",
	"insecure":    "insecure_skip_verify",
	"log-level":   "log_level",
	"log-format":  "log_format",
}

// loadConfig merges explicitly set flags over file and environment.
func loadConfig(c *cli.Context) (app.Config, error) {
	overrides := make(map[string]any)
	for flag, key := range flagKeys {
		if c.IsSet(flag) {
			overrides[key] = c.Value(flag)
		}
	}

	opts := []app.LoadOption{app.WithOverrides(overrides)}
	if path := c.String("config"); path != "" {
		opts = append(opts, app.WithConfigFile(path))
	}
	return app.LoadConfig(opts...)
}

func newApplication(c *cli.Context, cfg app.Config) (*app.Application, error) {
	return app.New(cfg, app.WithLogOutput(c.App.ErrWriter))
}

func diagnoseCommand() *cli.Command {
	return &cli.Command{
		Name:  "diagnose",
		Usage: "Print DNS, reachability and API diagnostics as JSON",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			a, err := newApplication(c, cfg)
			if err != nil {
				return err
			}
			return writeJSON(c.App.Writer, a.Diagnose(c.Context))
		},
	}
}

func resolveCommand() *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "Resolve a host name as the client would",
		ArgsUsage: "[host]",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			host := c.Args().First()
			if host == "" {
				host = cfg.Host
			}
			if host == "" {
				return errors.New("resolve: no host given")
			}
			if cfg.Host == "" {
				cfg.Host = host
			}

			a, err := newApplication(c, cfg)
			if err != nil {
				return err
			}
			return writeJSON(c.App.Writer, a.Resolve(c.Context, host))
		},
	}
}

func systemCommand() *cli.Command {
	return &cli.Command{
		Name:  "system",
		Usage: "Node system information",
		Subcommands: []*cli.Command{
			{
				Name:  "info",
				Usage: "Print node details",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "detailed", Usage: "use the v2 payload"},
				},
				Action: func(c *cli.Context) error {
					cfg, err := loadConfig(c)
					if err != nil {
						return err
					}
					a, err := newApplication(c, cfg)
					if err != nil {
						return err
					}
					env, err := a.Client().System.Info(c.Context, c.Bool("detailed"))
					if err != nil {
						return fmt.Errorf("system info: %w", err)
					}
					return writeJSON(c.App.Writer, env.ToMap())
				},
			},
		},
	}
}

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Mint signed node URLs",
		Subcommands: []*cli.Command{
			{
				Name:  "websocket",
				Usage: "Print a signed console websocket URL",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "server", Usage: "server uuid", Required: true},
					&cli.StringFlag{Name: "user", Usage: "user uuid", Required: true},
					&cli.StringSliceFlag{Name: "permission", Aliases: []string{"p"}, Usage: "granted permission, repeatable"},
				},
				Action: func(c *cli.Context) error {
					cfg, err := loadConfig(c)
					if err != nil {
						return err
					}
					a, err := newApplication(c, cfg)
					if err != nil {
						return err
					}
					u, err := a.WebsocketURL(c.String("server"), c.String("user"), c.StringSlice("permission"))
					if err != nil {
						return err
					}
					_, err = fmt.Fprintln(c.App.Writer, u)
					return err
				},
			},
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
