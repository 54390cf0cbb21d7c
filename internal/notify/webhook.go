package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/xela07ax/nosigns-guard/internal/lang"
)

type webhookPayload struct {
	ActorID    string `json:"actor_id"`
	MessageKey string `json:"message_key"`
	Message    string `json:"message"`
	Locale     string `json:"locale"`
}

// Webhook шлет сообщение в HTTP callback хоста, который уже делает SendReply игроку.
type Webhook struct {
	url     string
	client  *http.Client
	catalog *lang.Catalog
	locale  string
}

func NewWebhook(url string, timeout time.Duration, catalog *lang.Catalog, locale string) *Webhook {
	return &Webhook{
		url:     url,
		client:  &http.Client{Timeout: timeout},
		catalog: catalog,
		locale:  locale,
	}
}

func (w *Webhook) Send(ctx context.Context, actorID, messageKey string) error {
	locale := localeFrom(ctx, w.locale)
	body, err := json.Marshal(webhookPayload{
		ActorID:    actorID,
		MessageKey: messageKey,
		Message:    w.catalog.Message(messageKey, locale),
		Locale:     locale,
	})
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook call failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return &ThrottleError{
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Cause:      fmt.Errorf("status %d", resp.StatusCode),
		}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return &PermanentError{StatusCode: resp.StatusCode}
	default:
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
}

func parseRetryAfter(v string) time.Duration {
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return time.Second
}
