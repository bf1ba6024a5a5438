package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                              "/",
		"/metrics":                      "/metrics",
		"/v1/users/01ABC":               "/v1/users/:id",
		"/v1/users/01ABC/disable":       "/v1/users/:id/disable",
		"/v1/events/01ABC":              "/v1/events/:id",
		"/v1/events/01ABC/rsvp":         "/v1/events/:id/rsvp",
		"/v1/events/01ABC/rsvp/extra":   "/v1/events/01ABC/rsvp/extra",
		"/v1/auth/login":                "/v1/auth/login",
		"/v1/events?status=1&limit=10":  "/v1/events",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
