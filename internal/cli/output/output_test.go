package output

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatTable, false},
		{"table", FormatTable, false},
		{"json", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestTableFormatter_IDs(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TableFormatter{}).Format(&buf, []string{"b", "a"}); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 || strings.TrimSpace(lines[0]) != "ID" || lines[1] != "b" || lines[2] != "a" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestTableFormatter_MapSorted(t *testing.T) {
	var buf bytes.Buffer
	f := &TableFormatter{NoHeaders: true}
	if err := f.Format(&buf, map[string]string{"z": "last", "a": "first"}); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	out := buf.String()
	if strings.Contains(out, "ID") {
		t.Error("headers printed with NoHeaders")
	}
	if strings.Index(out, "first") > strings.Index(out, "last") {
		t.Errorf("rows not sorted: %q", out)
	}
}

func TestTableFormatter_Struct(t *testing.T) {
	type inner struct {
		Keys uint64 `json:"keys"`
	}
	type status struct {
		Collection string `json:"collection"`
		Storage    *inner `json:"storage"`
		Hidden     string `json:"-"`
		Empty      string `json:"empty"`
	}

	var buf bytes.Buffer
	err := (&TableFormatter{}).Format(&buf, &status{Collection: "resources", Storage: &inner{Keys: 3}, Hidden: "x"})
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"FIELD", "collection", "resources", "storage.keys", "3"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Hidden") {
		t.Error("json:\"-\" field rendered")
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "empty") && !strings.HasSuffix(line, "-") {
			t.Errorf("empty string not rendered as -: %q", line)
		}
	}
}

func TestTableFormatter_FallbackJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TableFormatter{}).Format(&buf, 42); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if strings.TrimSpace(buf.String()) != "42" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	data := map[string]any{"collection": "resources", "keys": 2}
	if err := (&YAMLFormatter{}).Format(&buf, data); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	var back map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &back); err != nil {
		t.Fatalf("output is not YAML: %v", err)
	}
	if back["collection"] != "resources" || back["keys"] != 2 {
		t.Errorf("decoded = %v", back)
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFormatter(FormatJSON).Format(&buf, []string{"a"}); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if buf.String() != "[\n  \"a\"\n]\n" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestIsTerminal(t *testing.T) {
	if IsTerminal(&bytes.Buffer{}) {
		t.Error("buffer reported as terminal")
	}
}

func TestProgressBar(t *testing.T) {
	var buf bytes.Buffer
	bar := NewProgressBar(&buf, "Upload", 100)

	bar.Write(make([]byte, 50))
	if !strings.Contains(buf.String(), " 50%") {
		t.Errorf("output = %q", buf.String())
	}

	bar.Finish()
	if !strings.Contains(buf.String(), "100%") || !strings.HasSuffix(buf.String(), "\n") {
		t.Errorf("output after Finish = %q", buf.String())
	}
}

func TestProgressBar_UnknownTotal(t *testing.T) {
	var buf bytes.Buffer
	bar := NewProgressBar(&buf, "Download", 0)
	bar.Add(2048)
	if !strings.Contains(buf.String(), "2.0 KB") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{
		0:       "0 B",
		1023:    "1023 B",
		1024:    "1.0 KB",
		1 << 20: "1.0 MB",
		3 << 30: "3.0 GB",
	}
	for in, want := range tests {
		if got := FormatBytes(in); got != want {
			t.Errorf("FormatBytes(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestSpinner(t *testing.T) {
	var buf syncBuffer
	s := NewSpinner(&buf, "working")
	s.Start()
	s.Success("done")
	s.Fail("ignored")

	out := buf.String()
	if !strings.Contains(out, "working") || !strings.HasSuffix(out, "✓ done\n") {
		t.Errorf("output = %q", out)
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
