package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/smtp"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/soyunomas/sniffguard/internal/config"
)

const alertBufferSize = 100

const (
	GlobalAlertLimit = 20
	MuteDuration     = 60 * time.Second
	flushTimeout     = 10 * time.Second
)

// Notifier fans alerts out to the configured sinks from a single
// background worker. Alert never blocks: when the buffer is full the
// message is only logged. A global limit mutes bursts (a SYN flood would
// otherwise page someone for every new source).
type Notifier struct {
	cfg         *config.AlertsConfig
	sensorName  string
	logger      zerolog.Logger
	alertChan   chan string
	client      *http.Client
	telegramAPI string
	done        chan struct{}

	// mu guards the flood state and closed; alertChan is only sent to or
	// closed while holding it.
	mu            sync.Mutex
	closed        bool
	alertCount    int
	windowStart   time.Time
	isMuted       bool
	mutedUntil    time.Time
	droppedAlerts int
}

func NewNotifier(cfg *config.AlertsConfig, sensorName string, logger zerolog.Logger) *Notifier {
	n := &Notifier{
		cfg:        cfg,
		sensorName: sensorName,
		logger:     logger,
		alertChan:  make(chan string, alertBufferSize),
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
		telegramAPI: "https://api.telegram.org",
		done:        make(chan struct{}),
		windowStart: time.Now(),
	}
	go n.worker()
	return n
}

func (n *Notifier) Alert(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	now := time.Now()

	if n.isMuted {
		if now.Before(n.mutedUntil) {
			n.droppedAlerts++
			return
		}
		n.isMuted = false
		summary := fmt.Sprintf("⚠️ [System] Resuming alerts. Dropped %d messages.", n.droppedAlerts)
		n.droppedAlerts = 0
		n.windowStart = now
		n.alertCount = 1

		n.dispatchLocked(summary)
		n.dispatchLocked(msg)
		return
	}

	if now.Sub(n.windowStart) > time.Minute {
		n.windowStart = now
		n.alertCount = 0
	}

	n.alertCount++

	if n.alertCount > GlobalAlertLimit {
		n.isMuted = true
		n.mutedUntil = now.Add(MuteDuration)
		n.droppedAlerts++
		n.dispatchLocked("⛔ [System] FLOOD PROTECTION. Silencing alerts for 60s...")
		return
	}

	n.dispatchLocked(msg)
}

// Force bypasses flood protection. Used for lifecycle messages and the
// final report.
func (n *Notifier) Force(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.closed {
		n.dispatchLocked(msg)
	}
}

func (n *Notifier) dispatchLocked(msg string) {
	n.logger.Warn().Msg(msg)
	select {
	case n.alertChan <- msg:
	default:
		n.logger.Debug().Msg("alert buffer full, message only logged")
	}
}

// Close stops intake and waits, bounded, for queued alerts to be sent.
// Safe to call more than once.
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	close(n.alertChan)
	n.mu.Unlock()

	select {
	case <-n.done:
	case <-time.After(flushTimeout):
		n.logger.Warn().Msg("alert flush timed out")
	}
}

func (n *Notifier) worker() {
	defer close(n.done)
	for msg := range n.alertChan {
		if n.cfg.Webhook.Enabled {
			n.sendWebhook(msg)
		}
		if n.cfg.SyslogServer != "" {
			n.sendSyslog(msg)
		}
		if n.cfg.Smtp.Enabled {
			n.sendEmail(msg)
		}
		if n.cfg.Telegram.Enabled {
			n.sendTelegram(msg)
		}
	}
}

func (n *Notifier) sendWebhook(msg string) {
	payload := map[string]string{"sensor": n.sensorName, "text": msg}
	jsonBody, _ := json.Marshal(payload)

	resp, err := n.client.Post(n.cfg.Webhook.URL, "application/json", bytes.NewBuffer(jsonBody))
	if err != nil {
		n.logger.Error().Err(err).Msg("webhook failed")
		return
	}
	resp.Body.Close()
}

func (n *Notifier) sendTelegram(msg string) {
	url := fmt.Sprintf("%s/bot%s/sendMessage", n.telegramAPI, n.cfg.Telegram.Token)
	payload := map[string]string{
		"chat_id": n.cfg.Telegram.ChatID,
		"text":    fmt.Sprintf("[%s] %s", n.sensorName, msg),
	}
	jsonBody, _ := json.Marshal(payload)

	resp, err := n.client.Post(url, "application/json", bytes.NewBuffer(jsonBody))
	if err != nil {
		n.logger.Error().Err(err).Msg("telegram failed")
		return
	}
	resp.Body.Close()
}

func (n *Notifier) sendSyslog(msg string) {
	conn, err := net.DialTimeout("udp", n.cfg.SyslogServer, 2*time.Second)
	if err != nil {
		n.logger.Error().Err(err).Msg("syslog failed")
		return
	}
	defer conn.Close()
	timestamp := time.Now().Format(time.RFC3339)
	// <132> = facility local0, severity warning
	fmt.Fprintf(conn, "<132>%s %s: %s", timestamp, n.sensorName, msg)
}

func (n *Notifier) sendEmail(msg string) {
	auth := smtp.PlainAuth("", n.cfg.Smtp.User, n.cfg.Smtp.Pass, n.cfg.Smtp.Host)
	addr := fmt.Sprintf("%s:%d", n.cfg.Smtp.Host, n.cfg.Smtp.Port)
	subject := fmt.Sprintf("Subject: [%s] Intrusion Alert\n", n.sensorName)
	mime := "MIME-version: 1.0;\nContent-Type: text/plain; charset=\"UTF-8\";\n\n"
	body := []byte(subject + mime + msg)

	if err := smtp.SendMail(addr, auth, n.cfg.Smtp.From, []string{n.cfg.Smtp.To}, body); err != nil {
		n.logger.Error().Err(err).Msg("smtp failed")
	}
}
