package command

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/crudkv-go/internal/cli/connection"
	"github.com/yndnr/crudkv-go/internal/cli/output"
)

// BackupCommand returns the backup command.
func BackupCommand() *cli.Command {
	return &cli.Command{
		Name:  "backup",
		Usage: "Download a backup stream of every record",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "out",
				Aliases:  []string{"O"},
				Usage:    "Write the backup to FILE (- for stdout)",
				Required: true,
			},
		},
		Action: backupAction,
	}
}

func backupAction(c *cli.Context) error {
	client, _, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	resp, err := client.Get(c.Context, "/admin/v1/backup")
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if err := connection.CheckResponse(resp); err != nil {
		return err
	}
	defer resp.Body.Close()

	dest := c.String("out")
	var w io.Writer = c.App.Writer
	var tmp *os.File
	if dest != "-" {
		tmp, err = os.CreateTemp(filepath.Dir(dest), ".crudkv-backup-*")
		if err != nil {
			return fmt.Errorf("create backup file: %w", err)
		}
		defer os.Remove(tmp.Name())
		defer tmp.Close()
		w = tmp
	}

	var bar *output.ProgressBar
	if output.IsTerminal(stderr(c)) {
		bar = output.NewProgressBar(stderr(c), "backup", resp.ContentLength)
		w = io.MultiWriter(w, bar)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return fmt.Errorf("download backup after %s: %w", output.FormatBytes(n), err)
	}
	if bar != nil {
		bar.Finish()
	}

	// Trailers are only populated once the body is fully read.
	records := resp.Trailer.Get("X-Backup-Records")
	if records == "" {
		return fmt.Errorf("backup stream ended without a record count")
	}

	if tmp != nil {
		if err := tmp.Sync(); err != nil {
			return fmt.Errorf("sync backup file: %w", err)
		}
		if err := tmp.Close(); err != nil {
			return fmt.Errorf("close backup file: %w", err)
		}
		if err := os.Rename(tmp.Name(), dest); err != nil {
			return fmt.Errorf("save backup file: %w", err)
		}
	}

	fmt.Fprintf(stderr(c), "backup of %s records written to %s (%s)\n", records, dest, output.FormatBytes(n))
	return nil
}

// RestoreCommand returns the restore command.
func RestoreCommand() *cli.Command {
	return &cli.Command{
		Name:  "restore",
		Usage: "Upload a backup stream and put every record it holds",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "in",
				Aliases:  []string{"I"},
				Usage:    "Read the backup from FILE (- for stdin)",
				Required: true,
			},
		},
		Action: restoreAction,
	}
}

func restoreAction(c *cli.Context) error {
	client, _, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	var r io.Reader = c.App.Reader
	var size int64
	if src := c.String("in"); src != "-" {
		f, err := os.Open(src)
		if err != nil {
			return fmt.Errorf("open backup file: %w", err)
		}
		defer f.Close()
		if info, err := f.Stat(); err == nil {
			size = info.Size()
		}
		r = f
	}

	var bar *output.ProgressBar
	if output.IsTerminal(stderr(c)) {
		bar = output.NewProgressBar(stderr(c), "restore", size)
		r = io.TeeReader(r, bar)
	}

	resp, err := client.Post(c.Context, "/admin/v1/restore", r, "application/octet-stream")
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if bar != nil {
		bar.Finish()
	}

	var result struct {
		Restored int `json:"restored" yaml:"restored"`
	}
	if err := connection.ParseEnvelope(resp, &result); err != nil {
		return err
	}

	if ParseGlobalFlags(c).Output != output.FormatTable {
		return render(c, result)
	}
	_, err = fmt.Fprintf(c.App.Writer, "restored %d records\n", result.Restored)
	return err
}
