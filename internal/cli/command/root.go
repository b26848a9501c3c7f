package command

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/crudkv-go/internal/cli/config"
	"github.com/yndnr/crudkv-go/internal/cli/connection"
	"github.com/yndnr/crudkv-go/internal/cli/output"
	"github.com/yndnr/crudkv-go/internal/infra/buildinfo"
)

const metaConnMgr = "connMgr"

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:     "crudkv-cli",
		Usage:    "crudkv command-line client",
		Version:  buildinfo.Get().String(),
		Flags:    globalFlags(),
		Metadata: map[string]any{},
		Commands: []*cli.Command{
			ListCommand(),
			GetCommand(),
			PutCommand(),
			CreateCommand(),
			DeleteCommand(),
			SystemCommand(),
			BackupCommand(),
			RestoreCommand(),
			ConfigCommand(),
		},
		Before: before,
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	defaults := config.Default()
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "CLI settings file",
			EnvVars: []string{"CRUDKV_CLI_CONFIG"},
			Value:   config.DefaultConfigPath(),
		},
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "crudkv server address (e.g., 127.0.0.1:5080)",
			EnvVars: []string{"CRUDKV_SERVER"},
			Value:   defaults.Server,
		},
		&cli.StringFlag{
			Name:    "collection",
			Aliases: []string{"c"},
			Usage:   "collection name configured on the server",
			EnvVars: []string{"CRUDKV_COLLECTION"},
			Value:   defaults.Collection,
		},
		&cli.StringFlag{
			Name:    "content-type",
			Aliases: []string{"t"},
			Usage:   "Content-Type sent with put and create",
			EnvVars: []string{"CRUDKV_CONTENT_TYPE"},
			Value:   defaults.ContentType,
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   defaults.Output,
		},
		&cli.StringFlag{
			Name:    "ca-file",
			Usage:   "PEM file with an extra CA trusted for https servers",
			EnvVars: []string{"CRUDKV_CLI_CA_FILE"},
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Request timeout (backup and restore are not bounded)",
			Value: defaults.Timeout,
		},
	}
}

// before fills flags the user did not set from the settings file and
// connects to the target server.
func before(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	fromFile := map[string]string{
		"server":       cfg.Server,
		"collection":   cfg.Collection,
		"content-type": cfg.ContentType,
		"output":       cfg.Output,
		"ca-file":      cfg.CAFile,
	}
	if cfg.Timeout > 0 {
		fromFile["timeout"] = cfg.Timeout.String()
	}
	for name, value := range fromFile {
		if value == "" || c.IsSet(name) {
			continue
		}
		if err := c.Set(name, value); err != nil {
			return fmt.Errorf("apply %s from %s: %w", name, c.String("config"), err)
		}
	}

	if _, err := output.ParseFormat(c.String("output")); err != nil {
		return err
	}

	flags := ParseGlobalFlags(c)
	mgr := connection.NewManager()
	if err := mgr.Connect(&connection.Connection{
		Server:      flags.Server,
		Collection:  flags.Collection,
		ContentType: flags.ContentType,
		CAFile:      flags.CAFile,
	}); err != nil {
		return err
	}
	c.App.Metadata[metaConnMgr] = mgr
	return nil
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	Config      string
	Server      string
	Collection  string
	ContentType string
	Output      output.Format
	Timeout     time.Duration
	CAFile      string
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	format, _ := output.ParseFormat(c.String("output"))
	return &GlobalFlags{
		Config:      c.String("config"),
		Server:      c.String("server"),
		Collection:  c.String("collection"),
		ContentType: c.String("content-type"),
		Output:      format,
		Timeout:     c.Duration("timeout"),
		CAFile:      c.String("ca-file"),
	}
}

// GetConnectionManager retrieves the connection manager from context.
func GetConnectionManager(c *cli.Context) *connection.Manager {
	if mgr, ok := c.App.Metadata[metaConnMgr].(*connection.Manager); ok {
		return mgr
	}
	return nil
}

// EnsureConnected returns the client and collection of the current
// connection.
func EnsureConnected(c *cli.Context) (*connection.HTTPClient, *connection.Connection, error) {
	mgr := GetConnectionManager(c)
	if mgr == nil || !mgr.IsConnected() {
		return nil, nil, fmt.Errorf("not connected")
	}
	return mgr.Client(), mgr.Current(), nil
}

// requestContext bounds one request by --timeout.
func requestContext(c *cli.Context) (context.Context, context.CancelFunc) {
	timeout := c.Duration("timeout")
	if timeout <= 0 {
		return context.WithCancel(c.Context)
	}
	return context.WithTimeout(c.Context, timeout)
}

// render writes data in the selected output format.
func render(c *cli.Context, data any) error {
	return output.NewFormatter(ParseGlobalFlags(c).Output).Format(c.App.Writer, data)
}

// stderr returns the writer used for progress and notices.
func stderr(c *cli.Context) io.Writer {
	if c.App.ErrWriter != nil {
		return c.App.ErrWriter
	}
	return io.Discard
}
