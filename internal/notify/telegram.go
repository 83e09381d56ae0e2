package notify

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/etfnews/newswatch/internal/config"
	"github.com/etfnews/newswatch/internal/failure"
	"github.com/etfnews/newswatch/internal/privacy"
)

const telegramChannel = "telegram"

// Telegram posts HTML messages through the Bot API sendMessage method.
type Telegram struct {
	apiBase        string
	token          string
	chatID         string
	disablePreview bool
	client         *http.Client
	redact         *privacy.Redactor
}

// NewTelegram creates a Telegram channel.
func NewTelegram(cfg config.TelegramConfig) *Telegram {
	apiBase := cfg.APIBase
	if apiBase == "" {
		apiBase = config.DefaultTelegramAPI
	}
	return &Telegram{
		apiBase:        strings.TrimRight(apiBase, "/"),
		token:          cfg.BotToken,
		chatID:         cfg.ChatID,
		disablePreview: cfg.DisablePreview,
		client:         &http.Client{Timeout: httpTimeout},
		redact:         privacy.New(cfg.BotToken),
	}
}

func (t *Telegram) Name() string {
	return telegramChannel
}

func (t *Telegram) Renderer() Renderer {
	return HTMLRenderer{}
}

// Send succeeds only on HTTP 200.
func (t *Telegram) Send(ctx context.Context, text string) error {
	form := url.Values{}
	form.Set("chat_id", t.chatID)
	form.Set("text", text)
	form.Set("parse_mode", "HTML")
	form.Set("disable_web_page_preview", strconv.FormatBool(t.disablePreview))

	endpoint := t.apiBase + "/bot" + t.token + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return failure.Newf(failure.Notify, telegramChannel, "create request: %s", t.redact.Apply(err.Error()))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return post(t.client, req, telegramChannel, http.StatusOK, t.redact)
}
