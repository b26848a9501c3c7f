package connection

import "testing"

func TestManager_Connect(t *testing.T) {
	m := NewManager()
	if m.IsConnected() || m.Client() != nil {
		t.Fatal("new manager should not be connected")
	}

	conn := &Connection{Server: "localhost:5080", Collection: "resources", ContentType: "application/octet-stream"}
	if err := m.Connect(conn); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if m.Current() != conn || !m.IsConnected() {
		t.Error("connection not current")
	}
	if m.Client().BaseURL() != "http://localhost:5080" {
		t.Errorf("BaseURL() = %q", m.Client().BaseURL())
	}

	m.Disconnect()
	if m.IsConnected() || m.Client() != nil {
		t.Error("still connected after Disconnect")
	}
}

func TestManager_ConnectInvalid(t *testing.T) {
	tests := []struct {
		name string
		conn Connection
	}{
		{"no server", Connection{Collection: "resources"}},
		{"bad collection", Connection{Server: "localhost:5080", Collection: "a/b"}},
		{"empty collection", Connection{Server: "localhost:5080"}},
		{"bad host", Connection{Server: "http://bad host", Collection: "resources"}},
		{"missing ca file", Connection{Server: "https://localhost:5443", Collection: "resources", CAFile: "/nonexistent/ca.pem"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager()
			if err := m.Connect(&tt.conn); err == nil {
				t.Error("Connect() should fail")
			}
			if m.IsConnected() {
				t.Error("failed Connect left a connection")
			}
		})
	}
}
