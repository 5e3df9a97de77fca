package config

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
)

// RunOptions are the command line settings that are not part of the
// TOML file.
type RunOptions struct {
	Verbose    bool
	ReplayPath string
}

// CreateCommand builds the root command. Flags override the config file,
// which overrides Default.
func CreateCommand(run func(ctx context.Context, cfg *Config, opts RunOptions) error) *cli.Command {
	return &cli.Command{
		Name:      "sniffguard",
		Usage:     "Live intrusion detection over raw Ethernet frames",
		ArgsUsage: "<interface>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "TOML config file; flags override its values",
				OnlyOnce: true,
				Sources:  cli.EnvVars("SNIFFGUARD_CONFIG"),
			},
			&cli.BoolFlag{
				Name:     "verbose",
				Aliases:  []string{"v"},
				Usage:    "dump every captured frame in hex and ASCII",
				OnlyOnce: true,
			},
			&cli.IntFlag{
				Name:      "workers",
				Usage:     "number of analysis workers (default: 25)",
				OnlyOnce:  true,
				Validator: validateWorkers,
			},
			&cli.StringFlag{
				Name:     "read",
				Aliases:  []string{"r"},
				Usage:    "replay a pcap/pcapng file instead of capturing live",
				OnlyOnce: true,
			},
			&cli.StringFlag{
				Name:      "log-level",
				Usage:     "trace, debug, info, warn or error",
				OnlyOnce:  true,
				Validator: validateLogLevel,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := Default()
			if path := cmd.String("config"); path != "" {
				loaded, err := LoadConfig(path)
				if err != nil {
					return err
				}
				cfg = loaded
			}

			if cmd.Args().Len() > 1 {
				return fmt.Errorf("%w: expected one interface, got %d arguments", ErrInvalid, cmd.Args().Len())
			}
			if iface := cmd.Args().First(); iface != "" {
				cfg.Network.Interface = iface
			}
			if cmd.IsSet("workers") {
				cfg.Pool.Workers = int(cmd.Int("workers"))
			}
			if cmd.IsSet("log-level") {
				cfg.System.LogLevel = cmd.String("log-level")
			}

			opts := RunOptions{
				Verbose:    cmd.Bool("verbose"),
				ReplayPath: cmd.String("read"),
			}
			if opts.ReplayPath == "" && cfg.Network.Interface == "" {
				return fmt.Errorf("%w: missing interface (usage: sniffguard [flags] <interface>)", ErrInvalid)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(ctx, cfg, opts)
		},
	}
}

func validateWorkers(v int) error {
	if v < 1 {
		return fmt.Errorf("must be at least 1")
	}
	return nil
}

func validateLogLevel(v string) error {
	if _, err := zerolog.ParseLevel(v); err != nil {
		return fmt.Errorf("invalid level string %s", v)
	}
	return nil
}
