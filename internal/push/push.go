// Package push delivers notifications to user devices through the two
// platform gateways. Callers get a plain success/failure per delivery;
// whether a failure was a dead token or a network blip is not part of the
// contract.
package push

import "context"

// Notification is the platform-independent payload. EventID rides along so
// clients can deep-link into the event.
type Notification struct {
	Title   string
	Body    string
	EventID string
}

// Gateway sends one notification to one device token. The two platforms use
// different message envelopes but carry the same title, body and event id.
type Gateway interface {
	SendAndroid(ctx context.Context, deviceToken string, n Notification) error
	SendIOS(ctx context.Context, deviceToken string, n Notification) error
}

var _ Gateway = (*Client)(nil)

// Client implements Gateway over the FCM and APNs HTTP APIs. A nil platform
// client makes deliveries to that platform fail without touching the network.
type Client struct {
	fcm  *FCMClient
	apns *APNSClient
}

// NewClient combines the two platform clients into one gateway.
func NewClient(fcm *FCMClient, apns *APNSClient) *Client {
	return &Client{fcm: fcm, apns: apns}
}

func (c *Client) SendAndroid(ctx context.Context, deviceToken string, n Notification) error {
	if c.fcm == nil {
		return errNotConfigured("fcm")
	}
	return c.fcm.Send(ctx, deviceToken, n)
}

func (c *Client) SendIOS(ctx context.Context, deviceToken string, n Notification) error {
	if c.apns == nil {
		return errNotConfigured("apns")
	}
	return c.apns.Send(ctx, deviceToken, n)
}

type errNotConfigured string

func (e errNotConfigured) Error() string {
	return string(e) + ": gateway not configured"
}
