package tlsroots

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Reloader serves a certificate and key pair and reloads it when either
// file changes on disk.
type Reloader struct {
	certFile string
	keyFile  string
	logger   *slog.Logger
	debounce time.Duration

	mu   sync.RWMutex
	cert *tls.Certificate

	reloadMu   sync.Mutex
	lastReload time.Time

	watcher  *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
}

// ReloaderOption configures a Reloader.
type ReloaderOption func(*Reloader)

// WithLogger sets the logger for the reloader.
func WithLogger(logger *slog.Logger) ReloaderOption {
	return func(r *Reloader) {
		r.logger = logger
	}
}

// WithDebounce sets the minimum interval between two reloads.
func WithDebounce(d time.Duration) ReloaderOption {
	return func(r *Reloader) {
		r.debounce = d
	}
}

// NewReloader loads the pair once and returns a reloader serving it.
func NewReloader(certFile, keyFile string, opts ...ReloaderOption) (*Reloader, error) {
	r := &Reloader{
		certFile: certFile,
		keyFile:  keyFile,
		logger:   slog.Default(),
		debounce: 500 * time.Millisecond,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := r.reload(); err != nil {
		return nil, fmt.Errorf("tlsroots: initial load: %w", err)
	}
	return r, nil
}

// StartAsync begins watching the certificate and key directories. The
// watch is registered before StartAsync returns; events are handled in a
// goroutine until Stop.
func (r *Reloader) StartAsync() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("tlsroots: create watcher: %w", err)
	}

	// Directories, not files: editors and cert managers replace by rename.
	dirs := []string{filepath.Dir(r.certFile)}
	if keyDir := filepath.Dir(r.keyFile); keyDir != dirs[0] {
		dirs = append(dirs, keyDir)
	}
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return fmt.Errorf("tlsroots: watch %s: %w", dir, err)
		}
	}

	r.watcher = watcher
	r.logger.Info("certificate reloader started",
		"cert_file", r.certFile,
		"key_file", r.keyFile)

	go r.loop()
	return nil
}

func (r *Reloader) loop() {
	certBase := filepath.Base(r.certFile)
	keyBase := filepath.Base(r.keyFile)

	for {
		select {
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			base := filepath.Base(event.Name)
			if base != certBase && base != keyBase {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			r.logger.Debug("certificate file changed", "file", event.Name, "op", event.Op.String())
			if err := r.debouncedReload(); err != nil {
				// Keep serving the previous pair.
				r.logger.Error("certificate reload failed",
					"error", err,
					"cert_file", r.certFile)
			}

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.logger.Error("certificate watcher error", "error", err)

		case <-r.done:
			r.watcher.Close()
			return
		}
	}
}

// Stop ends watching. It is safe to call more than once.
func (r *Reloader) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
	})
}

// GetCertificate returns the current pair. It satisfies
// tls.Config.GetCertificate.
func (r *Reloader) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cert, nil
}

func (r *Reloader) debouncedReload() error {
	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()

	now := time.Now()
	if now.Sub(r.lastReload) < r.debounce {
		return nil
	}
	r.lastReload = now

	// Writers often emit the event before the second file is in place.
	time.Sleep(100 * time.Millisecond)

	return r.reload()
}

func (r *Reloader) reload() error {
	cert, err := tls.LoadX509KeyPair(r.certFile, r.keyFile)
	if err != nil {
		return fmt.Errorf("load key pair: %w", err)
	}

	r.mu.Lock()
	r.cert = &cert
	r.mu.Unlock()

	r.logger.Info("certificate loaded", "cert_file", r.certFile)
	return nil
}
