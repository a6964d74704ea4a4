package notify

import (
	"context"
	"sync"
	"time"

	"github.com/oszuidwest/cranecheck/internal/config"
	"github.com/oszuidwest/cranecheck/internal/session"
	"github.com/oszuidwest/cranecheck/internal/util"
)

// sentRetention bounds how long delivered inspection IDs are remembered.
const sentRetention = 24 * time.Hour

// InspectionNotifier raises alerts for failed inspections. Each configured
// channel fires at most once per inspection ID; passed inspections are
// ignored. Delivery runs in the background and never blocks the session.
type InspectionNotifier struct {
	cfg *config.Config

	// mu protects sent
	mu   sync.Mutex
	sent map[string]time.Time

	wg sync.WaitGroup
}

// NewInspectionNotifier returns an InspectionNotifier configured with the given config.
func NewInspectionNotifier(cfg *config.Config) *InspectionNotifier {
	return &InspectionNotifier{
		cfg:  cfg,
		sent: make(map[string]time.Time),
	}
}

// HandleReport is the session completion hook.
func (n *InspectionNotifier) HandleReport(r session.Report) {
	if r.Passed() || !n.markSent(r.ID) {
		return
	}

	cfg := n.cfg.Snapshot()

	if cfg.HasWebhook() {
		n.spawn(func() {
			util.LogNotifyResult(func() error {
				return SendFailedInspectionWebhook(context.Background(), cfg.WebhookURL, r)
			}, "inspection webhook", true)
		})
	}
	if cfg.HasEmail() {
		emailCfg := emailConfig(&cfg)
		n.spawn(func() {
			util.LogNotifyResult(func() error {
				return SendFailedInspectionAlert(emailCfg, r)
			}, "inspection email", true)
		})
	}
	if cfg.HasLogPath() {
		n.spawn(func() {
			util.LogNotifyResult(func() error {
				return LogFailedInspection(cfg.LogPath, r)
			}, "inspection log", false)
		})
	}
}

// markSent records the inspection ID and reports whether it was new.
func (n *InspectionNotifier) markSent(id string) bool {
	now := time.Now()

	n.mu.Lock()
	defer n.mu.Unlock()

	for k, at := range n.sent {
		if now.Sub(at) > sentRetention {
			delete(n.sent, k)
		}
	}
	if _, dup := n.sent[id]; dup {
		return false
	}
	n.sent[id] = now
	return true
}

func (n *InspectionNotifier) spawn(fn func()) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		fn()
	}()
}

// Wait blocks until all in-flight alerts have finished.
func (n *InspectionNotifier) Wait() {
	n.wg.Wait()
}

// Test sends a test notification on the named channel: webhook, email or log.
func (n *InspectionNotifier) Test(ctx context.Context, channel string) error {
	cfg := n.cfg.Snapshot()
	switch channel {
	case "webhook":
		return SendTestWebhook(ctx, cfg.WebhookURL)
	case "email":
		return SendTestEmail(emailConfig(&cfg))
	case "log":
		return WriteTestLog(cfg.LogPath)
	default:
		return &util.ValidationError{Field: "channel", Message: "unknown channel " + channel + " (want webhook, email or log)"}
	}
}

func emailConfig(cfg *config.Snapshot) *EmailConfig {
	return &EmailConfig{
		Host:       cfg.EmailSMTPHost,
		Port:       cfg.EmailSMTPPort,
		FromName:   cfg.EmailFromName,
		Username:   cfg.EmailUsername,
		Password:   cfg.EmailPassword,
		Recipients: cfg.EmailRecipients,
	}
}
