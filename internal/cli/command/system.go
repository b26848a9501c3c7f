package command

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/crudkv-go/internal/cli/connection"
	"github.com/yndnr/crudkv-go/internal/cli/output"
	"github.com/yndnr/crudkv-go/internal/infra/buildinfo"
)

// SystemCommand returns the system subcommand group.
func SystemCommand() *cli.Command {
	return &cli.Command{
		Name:    "system",
		Aliases: []string{"sys"},
		Usage:   "Server health and maintenance",
		Subcommands: []*cli.Command{
			{
				Name:   "health",
				Usage:  "Check liveness and readiness",
				Action: systemHealth,
			},
			{
				Name:   "status",
				Usage:  "Show build, uptime and storage statistics",
				Action: systemStatus,
			},
			{
				Name:   "gc",
				Usage:  "Trigger storage garbage collection",
				Action: systemGC,
			},
		},
	}
}

type healthView struct {
	Server string `json:"server" yaml:"server"`
	Live   string `json:"live" yaml:"live"`
	Ready  string `json:"ready" yaml:"ready"`
}

func systemHealth(c *cli.Context) error {
	client, _, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	view := healthView{Server: client.BaseURL()}
	check := func(path string) (string, error) {
		resp, err := client.Get(ctx, path)
		if err != nil {
			return "unreachable", err
		}
		var data struct {
			Status string `json:"status"`
		}
		if err := connection.ParseEnvelope(resp, &data); err != nil {
			return "unavailable", err
		}
		return data.Status, nil
	}

	var liveErr, readyErr error
	view.Live, liveErr = check("/health")
	view.Ready, readyErr = check("/ready")
	if err := render(c, view); err != nil {
		return err
	}

	if liveErr != nil {
		return fmt.Errorf("server unhealthy: %w", liveErr)
	}
	if readyErr != nil {
		return fmt.Errorf("server not ready: %w", readyErr)
	}
	return nil
}

// statusView mirrors the data of GET /admin/v1/status.
type statusView struct {
	Build         buildinfo.Info `json:"build" yaml:"build"`
	UptimeSeconds int64          `json:"uptime_seconds" yaml:"uptime_seconds"`
	Collection    string         `json:"collection" yaml:"collection"`
	Storage       struct {
		Engine       string `json:"engine" yaml:"engine"`
		Keys         uint64 `json:"keys" yaml:"keys"`
		TotalSize    uint64 `json:"total_size" yaml:"total_size"`
		LSMSize      uint64 `json:"lsm_size,omitempty" yaml:"lsm_size,omitempty"`
		ValueLogSize uint64 `json:"value_log_size,omitempty" yaml:"value_log_size,omitempty"`
		LastGCTime   int64  `json:"last_gc_time,omitempty" yaml:"last_gc_time,omitempty"`
	} `json:"storage" yaml:"storage"`
}

func systemStatus(c *cli.Context) error {
	client, _, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	resp, err := client.Get(ctx, "/admin/v1/status")
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	var status statusView
	if err := connection.ParseEnvelope(resp, &status); err != nil {
		return err
	}

	if ParseGlobalFlags(c).Output != output.FormatTable {
		return render(c, status)
	}

	t := &output.Table{Headers: []string{"FIELD", "VALUE"}}
	t.AddRow("version", status.Build.String())
	t.AddRow("uptime", (time.Duration(status.UptimeSeconds) * time.Second).String())
	t.AddRow("collection", status.Collection)
	t.AddRow("engine", status.Storage.Engine)
	t.AddRow("keys", fmt.Sprint(status.Storage.Keys))
	t.AddRow("total size", output.FormatBytes(int64(status.Storage.TotalSize)))
	if status.Storage.LastGCTime > 0 {
		t.AddRow("last gc", time.UnixMilli(status.Storage.LastGCTime).UTC().Format(time.RFC3339))
	}
	return render(c, t)
}

func systemGC(c *cli.Context) error {
	client, _, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	var spinner *output.Spinner
	if output.IsTerminal(stderr(c)) {
		spinner = output.NewSpinner(stderr(c), "running storage gc")
		spinner.Start()
	}

	var result struct {
		TriggeredAt string `json:"triggered_at" yaml:"triggered_at"`
		DurationMS  int64  `json:"duration_ms" yaml:"duration_ms"`
	}
	resp, err := client.Post(ctx, "/admin/v1/gc", nil, "")
	if err == nil {
		err = connection.ParseEnvelope(resp, &result)
	}
	if err != nil {
		if spinner != nil {
			spinner.Fail("storage gc failed")
		}
		return err
	}
	if spinner != nil {
		spinner.Success("storage gc finished")
	}

	if ParseGlobalFlags(c).Output != output.FormatTable {
		return render(c, result)
	}
	_, err = fmt.Fprintf(c.App.Writer, "gc completed in %dms\n", result.DurationMS)
	return err
}
