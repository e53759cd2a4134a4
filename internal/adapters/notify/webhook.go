package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

type WebhookOptions struct {
	// URL reçoit un POST {"chatId": "...", "message": "..."}.
	URL string
	// HealthURL, si défini, est interrogé jusqu'au premier 2xx avant de déclarer le transport prêt.
	HealthURL string
	Token     string
	Recipient string
	Timeout   time.Duration
	// PollInterval entre deux vérifications de HealthURL (défaut 5s).
	PollInterval time.Duration
}

// WebhookTransport délivre les messages via une passerelle WhatsApp HTTP.
type WebhookTransport struct {
	opts   WebhookOptions
	client *resty.Client
	logger zerolog.Logger

	ready     chan struct{}
	readyOnce sync.Once
}

type webhookPayload struct {
	ChatID  string `json:"chatId"`
	Message string `json:"message"`
}

func NewWebhookTransport(opts WebhookOptions, logger zerolog.Logger) *WebhookTransport {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	client := resty.New()
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}
	if opts.Token != "" {
		client.SetAuthToken(opts.Token)
	}
	return &WebhookTransport{
		opts:   opts,
		client: client,
		logger: logger.With().Str("transport", "webhook").Logger(),
		ready:  make(chan struct{}),
	}
}

func (t *WebhookTransport) Name() string { return "webhook" }

func (t *WebhookTransport) Ready() <-chan struct{} { return t.ready }

// Start attend que la passerelle réponde avant de fermer Ready.
// Sans HealthURL, le transport est prêt immédiatement. Bloque jusqu'à ce que
// la passerelle soit prête ou que ctx soit annulé.
func (t *WebhookTransport) Start(ctx context.Context) {
	if strings.TrimSpace(t.opts.HealthURL) == "" {
		t.markReady()
		return
	}

	ticker := time.NewTicker(t.opts.PollInterval)
	defer ticker.Stop()
	for {
		if t.healthy(ctx) {
			t.markReady()
			t.logger.Info().Msg("gateway ready")
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (t *WebhookTransport) healthy(ctx context.Context) bool {
	resp, err := t.client.R().SetContext(ctx).Get(t.opts.HealthURL)
	if err != nil {
		t.logger.Debug().Err(err).Msg("gateway not reachable")
		return false
	}
	if resp.IsError() {
		t.logger.Debug().Int("status", resp.StatusCode()).Msg("gateway not ready")
		return false
	}
	return true
}

func (t *WebhookTransport) markReady() {
	t.readyOnce.Do(func() { close(t.ready) })
}

func (t *WebhookTransport) Send(ctx context.Context, text string) error {
	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(webhookPayload{ChatID: t.opts.Recipient + "@c.us", Message: text}).
		Post(t.opts.URL)
	if err != nil {
		return fmt.Errorf("webhook send: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook send: HTTP %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	return nil
}
