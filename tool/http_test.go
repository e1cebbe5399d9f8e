package tool

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPClientDoReturnsBodyAndStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := NewHTTPClient()
	resp, err := c.Do(context.Background(), HTTPRequest{Method: "GET", URL: srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusCreated || resp.Body != "ok" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestHTTPClientBlocksLoopbackAndMetadataTargets(t *testing.T) {
	c := NewHTTPClient()
	cases := []string{
		"http://127.0.0.1:8080/admin",
		"http://localhost/secret",
		"http://169.254.169.254/latest/meta-data/",
		"http://10.0.0.5/internal",
	}
	for _, u := range cases {
		_, err := c.Do(context.Background(), HTTPRequest{URL: u})
		if err == nil {
			t.Fatalf("expected %s to be blocked", u)
		}
		if _, ok := err.(*BlockedHostError); !ok {
			t.Fatalf("expected BlockedHostError for %s, got %T: %v", u, err, err)
		}
	}
}

func TestHTTPClientAllowsPublicHostByIP(t *testing.T) {
	c := NewHTTPClient()
	if err := checkHost("93.184.216.34"); err != nil {
		t.Fatalf("expected public IP to be allowed, got %v", err)
	}
	_ = c
}
