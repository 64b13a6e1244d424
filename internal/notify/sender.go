package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

type Sender interface {
	Send(ctx context.Context, token string, n Notification) error
}

// NewSender maps a provider kind from config to an implementation.
// Unknown kinds fall back to logging so a misconfigured deploy keeps
// running visibly instead of dropping pushes silently.
func NewSender(kind string) Sender {
	switch kind {
	case "", "stub", "log":
		return logSender{}
	case "noop":
		return noopSender{}
	case "fail":
		return failSender{}
	case "webhook":
		url := os.Getenv("NOTIF_PUSH_WEBHOOK_URL")
		token := os.Getenv("NOTIF_PUSH_WEBHOOK_TOKEN")
		if url == "" {
			return logSender{}
		}
		return webhookSender{url: url, authToken: token}
	default:
		if strings.HasPrefix(kind, "http://") || strings.HasPrefix(kind, "https://") {
			return webhookSender{url: kind}
		}
		return logSender{}
	}
}

type logSender struct{}

func (logSender) Send(ctx context.Context, token string, n Notification) error {
	log.Printf("push to %s: %s / %s", token, n.Title(), n.Body())
	return nil
}

type noopSender struct{}

func (noopSender) Send(ctx context.Context, token string, n Notification) error {
	return nil
}

type failSender struct{}

func (failSender) Send(ctx context.Context, token string, n Notification) error {
	return errors.New("provider failure")
}

type webhookSender struct {
	url       string
	authToken string
}

func (p webhookSender) Send(ctx context.Context, token string, n Notification) error {
	payload := map[string]interface{}{
		"token": token,
		"title": n.Title(),
		"body":  n.Body(),
		"data":  n.Data(),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+p.authToken)
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return errors.New("provider rejected request")
	}
	return nil
}
