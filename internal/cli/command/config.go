package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	cliconfig "github.com/yndnr/crudkv-go/internal/cli/config"
	"github.com/yndnr/crudkv-go/internal/infra/confloader"
	"github.com/yndnr/crudkv-go/internal/server/config"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:    "config",
		Aliases: []string{"cfg"},
		Usage:   "Configuration management",
		Subcommands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "Show the effective server configuration (defaults, FILE, CRUDKV_* env)",
				ArgsUsage: "[FILE]",
				Action:    configShow,
			},
			{
				Name:      "validate",
				Usage:     "Validate a server configuration file",
				ArgsUsage: "FILE",
				Action:    configValidate,
			},
			{
				Name:  "cli",
				Usage: "CLI local settings",
				Subcommands: []*cli.Command{
					{
						Name:   "show",
						Usage:  "Show effective CLI settings",
						Action: configCLIShow,
					},
					{
						Name:   "save",
						Usage:  "Save the effective CLI settings to the settings file",
						Action: configCLISave,
					},
				},
			},
		},
	}
}

// loadServerConfig resolves the server configuration the way crudkv-server
// does at startup.
func loadServerConfig(path string) (*config.ServerConfig, error) {
	cfg := config.Default()
	var opts []confloader.Option
	if path != "" {
		opts = append(opts, confloader.WithConfigFile(path))
	}
	if err := confloader.NewLoader(opts...).Load(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func configShow(c *cli.Context) error {
	cfg, err := loadServerConfig(c.Args().First())
	if err != nil {
		return err
	}
	return render(c, confloader.Flatten(config.Sanitize(cfg)))
}

func configValidate(c *cli.Context) error {
	path, err := requiredArg(c, "FILE")
	if err != nil {
		return err
	}

	cfg, err := loadServerConfig(path)
	if err != nil {
		return err
	}
	if err := config.Verify(cfg); err != nil {
		return fmt.Errorf("%s is invalid:\n%w", path, err)
	}

	_, err = fmt.Fprintf(c.App.Writer, "✓ %s is valid\n", path)
	return err
}

func effectiveCLIConfig(c *cli.Context) *cliconfig.CLIConfig {
	flags := ParseGlobalFlags(c)
	return &cliconfig.CLIConfig{
		Server:      flags.Server,
		Collection:  flags.Collection,
		ContentType: flags.ContentType,
		Output:      string(flags.Output),
		Timeout:     flags.Timeout,
		CAFile:      flags.CAFile,
	}
}

func configCLIShow(c *cli.Context) error {
	cfg := effectiveCLIConfig(c)
	return render(c, map[string]any{
		"file":         ParseGlobalFlags(c).Config,
		"server":       cfg.Server,
		"collection":   cfg.Collection,
		"content_type": cfg.ContentType,
		"output":       cfg.Output,
		"timeout":      cfg.Timeout.String(),
		"ca_file":      cfg.CAFile,
	})
}

func configCLISave(c *cli.Context) error {
	path := ParseGlobalFlags(c).Config
	if err := cliconfig.Save(effectiveCLIConfig(c), path); err != nil {
		return fmt.Errorf("save cli settings: %w", err)
	}
	_, err := fmt.Fprintf(c.App.Writer, "saved %s\n", path)
	return err
}
