package subscribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/CryptoMainlyLee/cryptomainly-portal/pkg/config"
	"github.com/CryptoMainlyLee/cryptomainly-portal/pkg/models"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateEmail reports whether the address is plausibly deliverable.
func ValidateEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}

// ResolveClientIP derives the caller's address from proxy headers, falling
// back to the socket peer.
func ResolveClientIP(r *http.Request) string {
	for _, header := range []string{"X-Real-Ip", "Cf-Connecting-Ip", "X-Vercel-Proxy-Ip"} {
		if ip := strings.TrimSpace(r.Header.Get(header)); ip != "" {
			return ip
		}
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return first
		}
	}
	if r.RemoteAddr != "" {
		if host := strings.Split(r.RemoteAddr, ":")[0]; host != "" {
			return host
		}
	}
	return "unknown"
}

// Relay forwards lead-capture submissions to the operator-configured
// spreadsheet endpoint. Forwarding is strictly best-effort: the caller
// never learns the outcome, and failures are logged for operator
// diagnostics only.
type Relay struct {
	endpoint   string
	devLogPath string
	defaultTag string
	client     *http.Client
	logger     *logrus.Entry

	// wg lets tests wait for in-flight forwards.
	wg sync.WaitGroup
	mu sync.Mutex // serializes dev-log appends
}

// NewRelay creates a relay from configuration. An empty relay URL disables
// forwarding; submissions are still accepted (and dev-logged if
// configured).
func NewRelay(cfg *config.SubscribeConfig, logger *logrus.Logger) *Relay {
	return &Relay{
		endpoint:   cfg.RelayURL,
		devLogPath: cfg.DevLogPath,
		defaultTag: cfg.DefaultTag,
		client: &http.Client{
			Timeout: cfg.RelayTimeout,
		},
		logger: logger.WithField("component", "subscribe"),
	}
}

// Submit accepts a validated subscription and kicks off the best-effort
// forward. It returns immediately; the relay outcome is never surfaced.
func (r *Relay) Submit(sub models.Subscription, clientIP string) {
	payload := r.flatten(sub, clientIP)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.forward(payload)
	}()
}

// Wait blocks until all in-flight forwards complete. Tests only.
func (r *Relay) Wait() {
	r.wg.Wait()
}

// flatten builds the key/value payload the Apps Script backend expects.
// Duplicate lower-case aliases match historical sheet column mappings.
func (r *Relay) flatten(sub models.Subscription, clientIP string) map[string]string {
	source := strings.TrimSpace(sub.Source)
	if source == "" {
		source = r.defaultTag
	}

	return map[string]string{
		"Email":     strings.TrimSpace(sub.Email),
		"Telegram":  strings.TrimSpace(sub.Telegram),
		"Source":    source,
		"source":    source,
		"IP":        clientIP,
		"ip":        clientIP,
		"Timestamp": time.Now().UTC().Format(time.RFC3339),
	}
}

func (r *Relay) forward(payload map[string]string) {
	if r.devLogPath != "" {
		if err := r.appendDevLog(payload); err != nil {
			r.logger.WithError(err).Warn("Failed to append subscribe dev log")
		}
	}

	if r.endpoint == "" {
		r.logger.Debug("No relay endpoint configured, submission not forwarded")
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		r.logger.WithError(err).Error("Failed to encode relay payload")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.client.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		r.logger.WithError(err).Error("Failed to build relay request")
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cache-Control", "no-store")

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.WithError(err).Warn("Lead relay failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		r.logger.WithField("status", resp.StatusCode).Warn("Lead relay returned non-success status")
		return
	}

	r.logger.WithField("email", payload["Email"]).Info("Lead forwarded")
}

// appendDevLog writes one JSON line per submission. Development
// convenience only; not part of the production contract.
func (r *Relay) appendDevLog(payload map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.OpenFile(r.devLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open dev log: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("failed to write dev log: %w", err)
	}
	return nil
}
