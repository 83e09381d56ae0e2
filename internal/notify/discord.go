package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"unicode/utf8"

	"github.com/etfnews/newswatch/internal/config"
	"github.com/etfnews/newswatch/internal/failure"
	"github.com/etfnews/newswatch/internal/item"
	"github.com/etfnews/newswatch/internal/privacy"
)

const (
	discordChannel = "discord"
	// discordMaxContent is the webhook's content length limit, in characters.
	discordMaxContent = 2000
)

// Discord posts Markdown messages to a webhook.
type Discord struct {
	webhookURL string
	client     *http.Client
	redact     *privacy.Redactor
}

// NewDiscord creates a Discord channel.
func NewDiscord(cfg config.DiscordConfig) *Discord {
	return &Discord{
		webhookURL: cfg.WebhookURL,
		client:     &http.Client{Timeout: httpTimeout},
		redact:     privacy.New(cfg.WebhookURL),
	}
}

func (d *Discord) Name() string {
	return discordChannel
}

func (d *Discord) Renderer() Renderer {
	return MarkdownRenderer{}
}

type webhookPayload struct {
	Content string `json:"content"`
}

// Send succeeds only on HTTP 204.
func (d *Discord) Send(ctx context.Context, text string) error {
	if utf8.RuneCountInString(text) > discordMaxContent {
		text = item.TruncateRunes(text, discordMaxContent-len(ellipsis)) + ellipsis
	}

	body, err := json.Marshal(webhookPayload{Content: text})
	if err != nil {
		return failure.New(failure.Notify, discordChannel, fmt.Errorf("marshal payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return failure.Newf(failure.Notify, discordChannel, "create request: %s", d.redact.Apply(err.Error()))
	}
	req.Header.Set("Content-Type", "application/json")

	return post(d.client, req, discordChannel, http.StatusNoContent, d.redact)
}
