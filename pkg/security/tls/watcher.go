package tls

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"rhel-lightspeed/cla-proxy/pkg/config"
)

// DefaultDebounceInterval is how long the watcher waits after the last file
// event before reloading. Certificate renewal usually rewrites both files.
const DefaultDebounceInterval = 200 * time.Millisecond

// IdentityWatcher keeps the client key pair in memory and reloads it when
// the certificate or key file changes on disk.
//
// The parent directories are watched rather than the files themselves so
// that renames and atomic replacements are seen. A reload that fails keeps
// the previously loaded pair.
type IdentityWatcher struct {
	certFile string
	keyFile  string
	rootCAs  *x509.CertPool
	logger   *slog.Logger
	interval time.Duration
	watcher  *fsnotify.Watcher

	mu       sync.RWMutex
	cert     *tls.Certificate
	onReload []func(*x509.Certificate)

	timerMu sync.Mutex
	timer   *time.Timer

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewIdentityWatcher loads the key pair once and prepares a watch on the
// directories holding it. Call Start to begin processing file events.
func NewIdentityWatcher(auth config.AuthConfig, logger *slog.Logger) (*IdentityWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	files, err := NewFileIdentity(auth)
	if err != nil {
		return nil, err
	}

	w := &IdentityWatcher{
		certFile: filepath.Clean(auth.CertFile),
		keyFile:  filepath.Clean(auth.KeyFile),
		rootCAs:  files.RootCAs(),
		logger:   logger,
		interval: DefaultDebounceInterval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}

	if err := w.Reload(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	for _, dir := range uniqueDirs(w.certFile, w.keyFile) {
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return nil, fmt.Errorf("failed to watch directory %q: %w", dir, err)
		}
	}
	w.watcher = watcher

	return w, nil
}

// SetDebounceInterval changes the quiet period before a reload. It must be
// called before Start.
func (w *IdentityWatcher) SetDebounceInterval(d time.Duration) {
	w.interval = d
}

// OnReload registers fn to be called with the new leaf after every
// successful reload.
func (w *IdentityWatcher) OnReload(fn func(*x509.Certificate)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReload = append(w.onReload, fn)
}

// Start begins processing file events in the background until ctx is
// cancelled or Stop is called.
func (w *IdentityWatcher) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		w.logger.Info("watching client identity for changes",
			"cert_file", w.certFile,
			"key_file", w.keyFile,
		)
		go w.run(ctx)
	})
}

// Stop ends event processing and releases the underlying watcher.
func (w *IdentityWatcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopCh)

		started := true
		w.startOnce.Do(func() { started = false })
		if started {
			<-w.doneCh
		}

		w.timerMu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.timerMu.Unlock()

		if cerr := w.watcher.Close(); cerr != nil {
			err = fmt.Errorf("failed to close watcher: %w", cerr)
		}
	})
	return err
}

// ClientCertificate implements IdentitySource with the cached pair.
func (w *IdentityWatcher) ClientCertificate() (*tls.Certificate, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.cert == nil {
		return nil, fmt.Errorf("client certificate not loaded")
	}
	return w.cert, nil
}

// RootCAs implements IdentitySource.
func (w *IdentityWatcher) RootCAs() *x509.CertPool {
	return w.rootCAs
}

// Reload reads the key pair from disk and swaps it in.
func (w *IdentityWatcher) Reload() error {
	cert, err := tls.LoadX509KeyPair(w.certFile, w.keyFile)
	if err != nil {
		return fmt.Errorf("failed to load client certificate %q / key %q: %w", w.certFile, w.keyFile, err)
	}
	leaf, err := LeafCertificate(&cert)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.cert = &cert
	callbacks := append([]func(*x509.Certificate){}, w.onReload...)
	w.mu.Unlock()

	w.logger.Info("client certificate loaded",
		"subject", leaf.Subject.CommonName,
		"issuer", leaf.Issuer.CommonName,
		"expires_at", leaf.NotAfter.Format(time.RFC3339),
	)
	for _, fn := range callbacks {
		fn(leaf)
	}
	return nil
}

func (w *IdentityWatcher) run(ctx context.Context) {
	defer close(w.doneCh)

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("identity file event", "path", event.Name, "op", event.Op.String())
			w.scheduleReload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("identity watcher error", "error", err)
		}
	}
}

func (w *IdentityWatcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	name := filepath.Clean(event.Name)
	return name == w.certFile || name == w.keyFile
}

// scheduleReload coalesces bursts of events into a single reload.
func (w *IdentityWatcher) scheduleReload() {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.interval, func() {
		select {
		case <-w.stopCh:
			return
		default:
		}
		if err := w.Reload(); err != nil {
			w.logger.Error("client certificate reload failed, keeping previous identity", "error", err)
		}
	})
}

func uniqueDirs(paths ...string) []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, p := range paths {
		dir := filepath.Dir(p)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	return dirs
}
