package push

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultAPNSBaseURL = "https://api.sandbox.push.apple.com"

	// Apple rejects provider tokens older than an hour; refresh before that.
	apnsTokenLifetime = 50 * time.Minute
)

// APNSClient sends iOS notifications through the APNs provider API using a
// structured aps payload with badge and sound metadata.
type APNSClient struct {
	client *resty.Client
	key    *ecdsa.PrivateKey
	keyID  string
	teamID string
	topic  string
	now    func() time.Time

	mu       sync.Mutex
	token    string
	issuedAt time.Time
}

// APNSConfig configures the iOS gateway. SigningKeyPEM is the contents of the
// provider .p8 key file.
type APNSConfig struct {
	BaseURL       string
	SigningKeyPEM string
	KeyID         string
	TeamID        string
	Topic         string
	Timeout       time.Duration
}

// NewAPNSClient constructs the iOS gateway client.
func NewAPNSClient(cfg APNSConfig) (*APNSClient, error) {
	if strings.TrimSpace(cfg.KeyID) == "" || strings.TrimSpace(cfg.TeamID) == "" || strings.TrimSpace(cfg.Topic) == "" {
		return nil, errors.New("apns: key id, team id and topic are required")
	}
	key, err := jwt.ParseECPrivateKeyFromPEM([]byte(cfg.SigningKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("apns: parse signing key: %w", err)
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultAPNSBaseURL
	}
	client := resty.New().SetBaseURL(baseURL)
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	return &APNSClient{
		client: client,
		key:    key,
		keyID:  cfg.KeyID,
		teamID: cfg.TeamID,
		topic:  cfg.Topic,
		now:    time.Now,
	}, nil
}

type apnsPayload struct {
	APS     apnsAPS `json:"aps"`
	EventID string  `json:"eventId"`
}

type apnsAPS struct {
	Alert apnsAlert `json:"alert"`
	Badge int       `json:"badge"`
	Sound string    `json:"sound"`
}

type apnsAlert struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Send delivers one notification to one iOS device token.
func (c *APNSClient) Send(ctx context.Context, deviceToken string, n Notification) error {
	providerToken, err := c.providerToken()
	if err != nil {
		return fmt.Errorf("apns: delivery failed: %w", err)
	}
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("authorization", "bearer "+providerToken).
		SetHeader("apns-topic", c.topic).
		SetHeader("apns-push-type", "alert").
		SetBody(apnsPayload{
			APS: apnsAPS{
				Alert: apnsAlert{Title: n.Title, Body: n.Body},
				Badge: 1,
				Sound: "default",
			},
			EventID: n.EventID,
		}).
		Post("/3/device/" + deviceToken)
	if err != nil {
		return fmt.Errorf("apns: delivery failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("apns: delivery failed: status %d", resp.StatusCode())
	}
	return nil
}

// providerToken returns a cached ES256 provider token, minting a new one when
// the cached token approaches Apple's one hour limit.
func (c *APNSClient) providerToken() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if c.token != "" && now.Sub(c.issuedAt) < apnsTokenLifetime {
		return c.token, nil
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"iss": c.teamID,
		"iat": now.Unix(),
	})
	tok.Header["kid"] = c.keyID
	signed, err := tok.SignedString(c.key)
	if err != nil {
		return "", err
	}
	c.token = signed
	c.issuedAt = now
	return signed, nil
}
