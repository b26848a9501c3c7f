package connection

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/yndnr/crudkv-go/internal/core/domain"
	"github.com/yndnr/crudkv-go/internal/infra/tlsroots"
)

// Manager holds the connection resolved for one CLI invocation.
type Manager struct {
	current *Connection
	client  *HTTPClient
}

// Connection describes the target server and collection.
type Connection struct {
	Server      string
	Collection  string
	ContentType string

	// CAFile adds a trusted CA for https servers.
	CAFile string
}

// NewManager creates a new connection manager.
func NewManager() *Manager {
	return &Manager{}
}

// Connect validates conn and makes it current.
func (m *Manager) Connect(conn *Connection) error {
	if conn.Server == "" {
		return errors.New("server address required")
	}
	if !domain.ValidCollectionName(conn.Collection) {
		return fmt.Errorf("invalid collection name %q", conn.Collection)
	}

	var opts []ClientOption
	if conn.CAFile != "" {
		tlsCfg, err := tlsroots.ClientConfig(conn.CAFile)
		if err != nil {
			return err
		}
		opts = append(opts, WithTLSConfig(tlsCfg))
	}

	client := NewHTTPClient(conn.Server, opts...)
	u, err := url.Parse(client.BaseURL())
	if err != nil || u.Host == "" {
		return fmt.Errorf("invalid server address %q", conn.Server)
	}

	m.current = conn
	m.client = client
	return nil
}

// Disconnect forgets the current connection.
func (m *Manager) Disconnect() {
	m.current = nil
	m.client = nil
}

// Current returns the current connection.
func (m *Manager) Current() *Connection {
	return m.current
}

// Client returns the client for the current connection.
func (m *Manager) Client() *HTTPClient {
	return m.client
}

// IsConnected returns true if connected to a server.
func (m *Manager) IsConnected() bool {
	return m.current != nil
}
