package subscribe

import (
	"bufio"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CryptoMainlyLee/cryptomainly-portal/pkg/config"
	"github.com/CryptoMainlyLee/cryptomainly-portal/pkg/models"
)

func TestValidateEmail(t *testing.T) {
	valid := []string{
		"lee@example.com",
		"first.last+tag@sub.domain.co.uk",
		"  padded@example.org  ",
	}
	for _, email := range valid {
		assert.True(t, ValidateEmail(email), "expected valid: %q", email)
	}

	invalid := []string{
		"",
		"   ",
		"plainaddress",
		"no-domain@",
		"@no-local.com",
		"two@@example.com",
		"spaces in@example.com",
		"nodot@example",
	}
	for _, email := range invalid {
		assert.False(t, ValidateEmail(email), "expected invalid: %q", email)
	}
}

func TestResolveClientIP(t *testing.T) {
	newReq := func(headers map[string]string, remoteAddr string) *http.Request {
		r := httptest.NewRequest(http.MethodPost, "/api/v1/subscribe", nil)
		r.RemoteAddr = remoteAddr
		for k, v := range headers {
			r.Header.Set(k, v)
		}
		return r
	}

	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{
			name:       "x-real-ip wins",
			headers:    map[string]string{"X-Real-Ip": "1.2.3.4", "X-Forwarded-For": "9.9.9.9"},
			remoteAddr: "10.0.0.1:5000",
			want:       "1.2.3.4",
		},
		{
			name:       "cloudflare header",
			headers:    map[string]string{"Cf-Connecting-Ip": "5.6.7.8"},
			remoteAddr: "10.0.0.1:5000",
			want:       "5.6.7.8",
		},
		{
			name:       "forwarded-for takes first hop",
			headers:    map[string]string{"X-Forwarded-For": "2.2.2.2, 3.3.3.3"},
			remoteAddr: "10.0.0.1:5000",
			want:       "2.2.2.2",
		},
		{
			name:       "socket peer fallback",
			remoteAddr: "192.168.1.50:61234",
			want:       "192.168.1.50",
		},
		{
			name: "nothing available",
			want: "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveClientIP(newReq(tt.headers, tt.remoteAddr)))
		})
	}
}

func testRelay(t *testing.T, cfg *config.SubscribeConfig) *Relay {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	if cfg.RelayTimeout == 0 {
		cfg.RelayTimeout = 2 * time.Second
	}
	if cfg.DefaultTag == "" {
		cfg.DefaultTag = "CryptoMainly Portal"
	}
	return NewRelay(cfg, log)
}

func TestRelayForwardsFlattenedPayload(t *testing.T) {
	var mu sync.Mutex
	var received map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		json.Unmarshal(body, &received)
		mu.Unlock()
	}))
	defer srv.Close()

	relay := testRelay(t, &config.SubscribeConfig{RelayURL: srv.URL})

	relay.Submit(models.Subscription{
		Email:    "  lee@example.com ",
		Telegram: "@lee",
		Source:   "footer-form",
	}, "1.2.3.4")
	relay.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.NotNil(t, received)
	assert.Equal(t, "lee@example.com", received["Email"])
	assert.Equal(t, "@lee", received["Telegram"])
	assert.Equal(t, "footer-form", received["Source"])
	assert.Equal(t, "footer-form", received["source"])
	assert.Equal(t, "1.2.3.4", received["IP"])
	assert.Equal(t, "1.2.3.4", received["ip"])

	ts, err := time.Parse(time.RFC3339, received["Timestamp"])
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), ts, time.Minute)
}

func TestRelayAppliesDefaultTag(t *testing.T) {
	var mu sync.Mutex
	var received map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		json.Unmarshal(body, &received)
		mu.Unlock()
	}))
	defer srv.Close()

	relay := testRelay(t, &config.SubscribeConfig{RelayURL: srv.URL, DefaultTag: "CryptoMainly Portal"})

	relay.Submit(models.Subscription{Email: "a@b.co"}, "1.1.1.1")
	relay.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "CryptoMainly Portal", received["Source"])
	assert.Equal(t, "CryptoMainly Portal", received["source"])
}

func TestRelaySwallowsForwardFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	relay := testRelay(t, &config.SubscribeConfig{RelayURL: srv.URL})

	// Must not panic or surface anything to the caller.
	relay.Submit(models.Subscription{Email: "a@b.co"}, "1.1.1.1")
	relay.Wait()
}

func TestRelayNoEndpointConfigured(t *testing.T) {
	relay := testRelay(t, &config.SubscribeConfig{})

	relay.Submit(models.Subscription{Email: "a@b.co"}, "1.1.1.1")
	relay.Wait()
}

func TestRelayDevLogAppendsJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subscribers.jsonl")
	relay := testRelay(t, &config.SubscribeConfig{DevLogPath: path})

	relay.Submit(models.Subscription{Email: "one@example.com"}, "1.1.1.1")
	relay.Submit(models.Subscription{Email: "two@example.com"}, "2.2.2.2")
	relay.Wait()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	emails := map[string]bool{}
	scanner := bufio.NewScanner(f)
	lines := 0
	for scanner.Scan() {
		lines++
		var payload map[string]string
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &payload))
		emails[payload["Email"]] = true
	}
	require.NoError(t, scanner.Err())

	assert.Equal(t, 2, lines)
	assert.True(t, emails["one@example.com"])
	assert.True(t, emails["two@example.com"])
}
