// Package discord announces new broadcasts through a Discord webhook.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bft-labs/streamkeeper/internal/domain"
	"github.com/bft-labs/streamkeeper/internal/ports"
	"github.com/bft-labs/streamkeeper/pkg/log"
)

// Defaults for the webhook message.
const (
	DefaultBotName          = "Stream Keeper"
	DefaultEmbedTitle       = "Stream Rotated Successfully"
	DefaultEmbedDescription = "A new livestream has been created and is ready for broadcast."
	DefaultEmbedColor       = 0x00FF00

	footerText = "Stream Keeper"
)

// Config configures the webhook message.
type Config struct {
	WebhookURL       string
	BotName          string
	EmbedTitle       string
	EmbedDescription string
	EmbedColor       int
}

// Notifier posts an embed describing each new broadcast.
type Notifier struct {
	cfg    Config
	client ports.HTTPClient
	logger log.Logger
	now    func() time.Time
}

// NewNotifier creates a notifier. Empty message fields take the defaults.
func NewNotifier(cfg Config, client ports.HTTPClient, logger log.Logger) *Notifier {
	if cfg.BotName == "" {
		cfg.BotName = DefaultBotName
	}
	if cfg.EmbedTitle == "" {
		cfg.EmbedTitle = DefaultEmbedTitle
	}
	if cfg.EmbedDescription == "" {
		cfg.EmbedDescription = DefaultEmbedDescription
	}
	if cfg.EmbedColor == 0 {
		cfg.EmbedColor = DefaultEmbedColor
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Notifier{cfg: cfg, client: client, logger: logger, now: time.Now}
}

type payload struct {
	Username string  `json:"username"`
	Embeds   []embed `json:"embeds"`
}

type embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Color       int          `json:"color"`
	Fields      []embedField `json:"fields"`
	Timestamp   string       `json:"timestamp"`
	Footer      embedFooter  `json:"footer"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embedFooter struct {
	Text string `json:"text"`
}

func (n *Notifier) payload(msg domain.Notification) payload {
	return payload{
		Username: n.cfg.BotName,
		Embeds: []embed{{
			Title:       n.cfg.EmbedTitle,
			Description: n.cfg.EmbedDescription,
			Color:       n.cfg.EmbedColor,
			Fields: []embedField{
				{Name: "Stream Title", Value: msg.Title},
				{Name: "Shareable Link", Value: fmt.Sprintf("[Click Here to Watch](%s)", msg.ViewURL), Inline: true},
				{Name: "Stream Key", Value: "`" + msg.IngestionKeyMasked + "`", Inline: true},
			},
			Timestamp: n.now().UTC().Format(time.RFC3339),
			Footer:    embedFooter{Text: footerText},
		}},
	}
}

// Notify posts the announcement. Without a webhook URL it logs a warning
// and does nothing.
func (n *Notifier) Notify(ctx context.Context, msg domain.Notification) error {
	if n.cfg.WebhookURL == "" {
		n.logger.Warn("discord webhook url not configured, skipping notification")
		return nil
	}

	body, err := json.Marshal(n.payload(msg))
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
