package discord

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type executor interface {
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Webhook posts row screenshots to a Discord channel webhook.
type Webhook struct {
	id    string
	token string
	exec  executor
	log   *zap.Logger
	now   func() time.Time
}

// NewWebhook takes the full webhook URL,
// https://discord.com/api/webhooks/<id>/<token>.
func NewWebhook(webhookURL string, logger *zap.Logger) (*Webhook, error) {
	id, token, err := ParseWebhookURL(webhookURL)
	if err != nil {
		return nil, err
	}
	// Webhook execution is authorized by the token in the path, no bot token
	// is needed on the session.
	session, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Webhook{id: id, token: token, exec: session, log: logger, now: time.Now}, nil
}

func ParseWebhookURL(raw string) (id, token string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("parsing webhook url: %w", err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "webhooks" && parts[i+1] != "" && parts[i+2] != "" {
			return parts[i+1], parts[i+2], nil
		}
	}
	return "", "", fmt.Errorf("webhook url %q has no /webhooks/<id>/<token> path", u.Redacted())
}

func (w *Webhook) SendScreenshot(ctx context.Context, symbol string, png []byte) error {
	name := fmt.Sprintf("%s_%d.png", symbol, w.now().UnixMilli())
	params := &discordgo.WebhookParams{
		Files: []*discordgo.File{{
			Name:        name,
			ContentType: "image/png",
			Reader:      bytes.NewReader(png),
		}},
	}
	if _, err := w.exec.WebhookExecute(w.id, w.token, false, params, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("sending %s to discord: %w", name, err)
	}
	w.log.Debug("screenshot posted", zap.String("file", name), zap.Int("bytes", len(png)))
	return nil
}
