package tls

import (
	"context"
	"crypto/x509"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ExpiryRecorder receives the expiry time of the client certificate after
// every check. The metrics collector implements it.
type ExpiryRecorder interface {
	SetCertificateExpiry(subject string, notAfter time.Time)
}

// ExpiryMonitor checks the client certificate on a cron schedule and logs a
// warning as it approaches expiry.
type ExpiryMonitor struct {
	source   IdentitySource
	schedule string
	warnDays int
	recorder ExpiryRecorder
	cron     *cron.Cron
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewExpiryMonitor creates a monitor for source. recorder may be nil.
func NewExpiryMonitor(source IdentitySource, schedule string, warnDays int, recorder ExpiryRecorder, logger *slog.Logger) *ExpiryMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExpiryMonitor{
		source:   source,
		schedule: schedule,
		warnDays: warnDays,
		recorder: recorder,
		cron:     cron.New(),
		logger:   logger.With("component", "tls.expiry"),
	}
}

// Start runs one check immediately and schedules the rest. An empty
// schedule disables the monitor. The monitor stops when ctx is cancelled.
func (m *ExpiryMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.schedule == "" {
		m.logger.Info("certificate expiry schedule not configured, skipping monitor")
		return nil
	}

	if _, err := m.cron.AddFunc(m.schedule, m.run); err != nil {
		return fmt.Errorf("invalid expiry check schedule %q: %w", m.schedule, err)
	}

	m.run()
	m.cron.Start()
	m.running = true

	m.logger.Info("certificate expiry monitor started",
		"schedule", m.schedule,
		"warning_days", m.warnDays,
	)

	go func() {
		<-ctx.Done()
		m.Stop()
	}()

	return nil
}

// Stop stops the schedule and waits for a running check to finish.
func (m *ExpiryMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		<-m.cron.Stop().Done()
		m.running = false
		m.logger.Info("certificate expiry monitor stopped")
	}
}

// Check inspects the current client certificate once and returns the whole
// days left before it expires.
func (m *ExpiryMonitor) Check() (int, error) {
	cert, err := m.source.ClientCertificate()
	if err != nil {
		return 0, err
	}
	leaf, err := LeafCertificate(cert)
	if err != nil {
		return 0, err
	}

	m.record(leaf)

	days, warning := CheckCertificateExpiration(leaf, m.warnDays)
	if warning != "" {
		m.logger.Warn(warning,
			"subject", leaf.Subject.CommonName,
			"expires_in_days", days,
			"expires_at", leaf.NotAfter.Format(time.RFC3339),
		)
	} else {
		m.logger.Debug("client certificate expiry checked",
			"subject", leaf.Subject.CommonName,
			"expires_in_days", days,
		)
	}
	return days, nil
}

// NextRun returns the next scheduled check, or nil when not scheduled.
func (m *ExpiryMonitor) NextRun() *time.Time {
	entries := m.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}

func (m *ExpiryMonitor) run() {
	if _, err := m.Check(); err != nil {
		m.logger.Error("certificate expiry check failed", "error", err)
	}
}

func (m *ExpiryMonitor) record(leaf *x509.Certificate) {
	if m.recorder != nil {
		m.recorder.SetCertificateExpiry(leaf.Subject.CommonName, leaf.NotAfter)
	}
}
