package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/etfnews/newswatch/internal/config"
	"github.com/etfnews/newswatch/internal/failure"
	"github.com/etfnews/newswatch/internal/privacy"
)

const (
	httpTimeout  = 15 * time.Second
	maxErrorBody = 2048
)

// Channel delivers rendered text to one chat destination.
type Channel interface {
	Name() string
	Renderer() Renderer
	Send(ctx context.Context, text string) error
}

// Deliver renders m for ch and sends it. Empty messages are skipped and
// reported as not sent.
func Deliver(ctx context.Context, ch Channel, m Message) (bool, error) {
	text, err := Format(ch.Renderer(), m)
	if err != nil {
		return false, failure.New(failure.Notify, ch.Name(), err)
	}
	if text == "" {
		return false, nil
	}
	if err := ch.Send(ctx, text); err != nil {
		return false, err
	}
	return true, nil
}

// FromConfig builds the configured channel. Credentials are expected to
// have been resolved and validated by config.Load.
func FromConfig(cfg config.NotifyConfig) (Channel, error) {
	switch cfg.Channel {
	case config.ChannelTelegram:
		return NewTelegram(cfg.Telegram), nil
	case config.ChannelDiscord:
		return NewDiscord(cfg.Discord), nil
	default:
		return nil, failure.Newf(failure.Config, "notify", "unknown channel %q", cfg.Channel)
	}
}

// post sends one request and checks for the channel's success status.
// Secrets are masked in every error it returns.
func post(client *http.Client, req *http.Request, channel string, want int, redact *privacy.Redactor) error {
	resp, err := client.Do(req)
	if err != nil {
		return failure.New(failure.Notify, channel, fmt.Errorf("http request: %s", redact.Apply(err.Error())))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == want {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return failure.Newf(failure.Notify, channel, "status %d: %s",
		resp.StatusCode, redact.Apply(strings.TrimSpace(string(body))))
}
