package command

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"unicode/utf8"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/crudkv-go/internal/cli/connection"
	"github.com/yndnr/crudkv-go/internal/cli/output"
)

// previewLimit bounds the bytes shown by get on a terminal.
const previewLimit = 512

// ListCommand returns the list command.
func ListCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List resource ids in the collection",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "full",
				Usage: "Include values; fetched one by one when the server lists ids only",
			},
		},
		Action: listAction,
	}
}

func listAction(c *cli.Context) error {
	client, conn, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	resp, err := client.Get(ctx, connection.CollectionPath(conn.Collection))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	var raw json.RawMessage
	if err := connection.ParseResponse(resp, &raw); err != nil {
		return err
	}

	// The server answers an id array, or an id→value object when it runs
	// with endpoint.full_collection.
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '{' {
		var entries map[string]string
		if err := json.Unmarshal(raw, &entries); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
		if !c.Bool("full") {
			return render(c, sortedIDs(entries))
		}
		return render(c, entries)
	}

	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	if !c.Bool("full") {
		return render(c, ids)
	}

	entries := make(map[string]string, len(ids))
	for _, id := range ids {
		resp, err := client.Get(ctx, connection.ResourcePath(conn.Collection, id))
		if err != nil {
			return fmt.Errorf("get %s: %w", id, err)
		}
		value, err := connection.ReadBody(resp)
		if connection.IsNotFound(err) {
			// Deleted since the listing.
			continue
		}
		if err != nil {
			return fmt.Errorf("get %s: %w", id, err)
		}
		entries[id] = string(value)
	}
	return render(c, entries)
}

// GetCommand returns the get command.
func GetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Print a resource value",
		ArgsUsage: "ID",
		Action:    getAction,
	}
}

// resourceView is the json/yaml rendering of get.
type resourceView struct {
	ID          string `json:"id" yaml:"id"`
	ContentType string `json:"content_type" yaml:"content_type"`
	Size        int    `json:"size" yaml:"size"`
	Value       string `json:"value" yaml:"value"`
}

func getAction(c *cli.Context) error {
	id, err := requiredArg(c, "ID")
	if err != nil {
		return err
	}
	client, conn, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	resp, err := client.Get(ctx, connection.ResourcePath(conn.Collection, id))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	contentType := resp.Header.Get("Content-Type")
	value, err := connection.ReadBody(resp)
	if err != nil {
		return err
	}

	switch format := ParseGlobalFlags(c).Output; {
	case format != output.FormatTable:
		return render(c, resourceView{ID: id, ContentType: contentType, Size: len(value), Value: string(value)})
	case output.IsTerminal(c.App.Writer):
		_, err := fmt.Fprintln(c.App.Writer, preview(value))
		return err
	default:
		_, err := c.App.Writer.Write(value)
		return err
	}
}

// preview renders value for a terminal: text is quoted, binary is shown as
// a byte count. Long values are cut at previewLimit.
func preview(value []byte) string {
	if !utf8.Valid(value) {
		return fmt.Sprintf("<%s of binary data>", output.FormatBytes(int64(len(value))))
	}
	shown := value
	if len(shown) > previewLimit {
		shown = shown[:previewLimit]
	}

	s := strconv.Quote(string(shown))
	if len(shown) < len(value) {
		s += fmt.Sprintf(" ... (%s total)", output.FormatBytes(int64(len(value))))
	}
	return s
}

// PutCommand returns the put command.
func PutCommand() *cli.Command {
	return &cli.Command{
		Name:      "put",
		Usage:     "Create or replace a resource under ID",
		ArgsUsage: "ID",
		Flags:     payloadFlags(),
		Action:    putAction,
	}
}

func putAction(c *cli.Context) error {
	id, err := requiredArg(c, "ID")
	if err != nil {
		return err
	}
	body, err := readPayload(c)
	if err != nil {
		return err
	}
	client, conn, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	resp, err := client.Put(ctx, connection.ResourcePath(conn.Collection, id), bytes.NewReader(body), conn.ContentType)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if err := connection.ParseResponse(resp, nil); err != nil {
		return err
	}

	fmt.Fprintf(stderr(c), "stored %s (%s)\n", id, output.FormatBytes(int64(len(body))))
	return nil
}

// CreateCommand returns the create command.
func CreateCommand() *cli.Command {
	return &cli.Command{
		Name:   "create",
		Usage:  "Create a resource under a server-assigned id",
		Flags:  payloadFlags(),
		Action: createAction,
	}
}

func createAction(c *cli.Context) error {
	body, err := readPayload(c)
	if err != nil {
		return err
	}
	client, conn, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	resp, err := client.Post(ctx, connection.CollectionPath(conn.Collection), bytes.NewReader(body), conn.ContentType)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	var created struct {
		Resource string `json:"resource" yaml:"resource"`
	}
	if err := connection.ParseResponse(resp, &created); err != nil {
		return err
	}

	if ParseGlobalFlags(c).Output == output.FormatTable {
		_, err := fmt.Fprintln(c.App.Writer, created.Resource)
		return err
	}
	return render(c, created)
}

// DeleteCommand returns the delete command.
func DeleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Aliases:   []string{"rm"},
		Usage:     "Delete a resource",
		ArgsUsage: "ID",
		Action:    deleteAction,
	}
}

func deleteAction(c *cli.Context) error {
	id, err := requiredArg(c, "ID")
	if err != nil {
		return err
	}
	client, conn, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	resp, err := client.Delete(ctx, connection.ResourcePath(conn.Collection, id))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if err := connection.ParseResponse(resp, nil); err != nil {
		return err
	}

	fmt.Fprintf(stderr(c), "deleted %s\n", id)
	return nil
}

func payloadFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "file",
			Aliases: []string{"f"},
			Usage:   "Read the value from FILE (- for stdin)",
		},
		&cli.StringFlag{
			Name:    "data",
			Aliases: []string{"d"},
			Usage:   "Use the literal value",
		},
	}
}

// readPayload returns the --data value, the --file content, or stdin when
// neither is given.
func readPayload(c *cli.Context) ([]byte, error) {
	file, data := c.String("file"), c.String("data")
	switch {
	case c.IsSet("file") && c.IsSet("data"):
		return nil, errors.New("--file and --data are mutually exclusive")
	case c.IsSet("data"):
		return []byte(data), nil
	case file != "" && file != "-":
		return os.ReadFile(file)
	default:
		return io.ReadAll(c.App.Reader)
	}
}

func requiredArg(c *cli.Context, name string) (string, error) {
	if c.NArg() != 1 {
		return "", fmt.Errorf("exactly one %s argument required", name)
	}
	return c.Args().First(), nil
}

func sortedIDs(entries map[string]string) []string {
	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
