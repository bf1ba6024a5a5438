package push

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultFCMBaseURL = "https://fcm.googleapis.com"

// FCMClient sends Android notifications through the FCM HTTP API using a
// data + notification payload.
type FCMClient struct {
	client    *resty.Client
	serverKey string
}

// FCMConfig configures the Android gateway.
type FCMConfig struct {
	BaseURL   string
	ServerKey string
	Timeout   time.Duration
}

// NewFCMClient constructs the Android gateway client.
func NewFCMClient(cfg FCMConfig) (*FCMClient, error) {
	if strings.TrimSpace(cfg.ServerKey) == "" {
		return nil, errors.New("fcm: server key is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultFCMBaseURL
	}
	client := resty.New().SetBaseURL(baseURL)
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	return &FCMClient{client: client, serverKey: cfg.ServerKey}, nil
}

type fcmMessage struct {
	To           string          `json:"to"`
	Data         fcmData         `json:"data"`
	Notification fcmNotification `json:"notification"`
}

type fcmData struct {
	EventID string `json:"eventId"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Send delivers one notification to one Android device token.
func (c *FCMClient) Send(ctx context.Context, deviceToken string, n Notification) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "key="+c.serverKey).
		SetBody(fcmMessage{
			To:           deviceToken,
			Data:         fcmData{EventID: n.EventID},
			Notification: fcmNotification{Title: n.Title, Body: n.Body},
		}).
		Post("/fcm/send")
	if err != nil {
		return fmt.Errorf("fcm: delivery failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("fcm: delivery failed: status %d", resp.StatusCode())
	}
	return nil
}
