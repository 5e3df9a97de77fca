package notifier

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyunomas/sniffguard/internal/config"
)

type recorder struct {
	mu    sync.Mutex
	paths []string
	texts []string
}

func (r *recorder) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		body, err := io.ReadAll(req.Body)
		assert.NoError(t, err)
		var payload map[string]string
		assert.NoError(t, json.Unmarshal(body, &payload))

		r.mu.Lock()
		r.paths = append(r.paths, req.URL.Path)
		r.texts = append(r.texts, payload["text"])
		r.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}
}

func (r *recorder) snapshot() ([]string, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...), append([]string(nil), r.texts...)
}

func TestNotifier_WebhookDeliveredBeforeClose(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(rec.handler(t))
	defer srv.Close()

	cfg := &config.AlertsConfig{Webhook: config.WebhookConfig{Enabled: true, URL: srv.URL}}
	n := NewNotifier(cfg, "sensor-1", zerolog.Nop())

	n.Alert("new SYN source 10.0.0.5")
	n.Force("report")
	n.Close()

	_, texts := rec.snapshot()
	assert.Equal(t, []string{"new SYN source 10.0.0.5", "report"}, texts)
}

func TestNotifier_Telegram(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(rec.handler(t))
	defer srv.Close()

	cfg := &config.AlertsConfig{Telegram: config.TelegramConfig{Enabled: true, Token: "abc", ChatID: "42"}}
	n := NewNotifier(cfg, "sensor-1", zerolog.Nop())
	n.telegramAPI = srv.URL

	n.Force("hello")
	n.Close()

	paths, texts := rec.snapshot()
	require.Len(t, paths, 1)
	assert.Equal(t, "/botabc/sendMessage", paths[0])
	assert.Equal(t, "[sensor-1] hello", texts[0])
}

func TestNotifier_FloodProtection(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(rec.handler(t))
	defer srv.Close()

	cfg := &config.AlertsConfig{Webhook: config.WebhookConfig{Enabled: true, URL: srv.URL}}
	n := NewNotifier(cfg, "s", zerolog.Nop())

	for i := 0; i < GlobalAlertLimit+10; i++ {
		n.Alert("burst")
	}

	n.mu.Lock()
	assert.True(t, n.isMuted)
	assert.Equal(t, 10, n.droppedAlerts)
	n.mu.Unlock()

	// lifecycle messages are never muted
	n.Force("final report")
	n.Close()

	_, texts := rec.snapshot()
	require.Len(t, texts, GlobalAlertLimit+2)
	assert.Contains(t, texts[GlobalAlertLimit], "FLOOD PROTECTION")
	assert.Equal(t, "final report", texts[len(texts)-1])
}

func TestNotifier_AfterCloseIsNoop(t *testing.T) {
	n := NewNotifier(&config.AlertsConfig{}, "s", zerolog.Nop())
	n.Close()

	assert.NotPanics(t, func() {
		n.Alert("late")
		n.Force("late")
		n.Close()
	})
}
