package m2m

import (
	"net/http"
	"sync/atomic"
)

// authTransport injects the session api key into every request
type authTransport struct {
	base   http.RoundTripper
	apiKey atomic.Value
}

func (t *authTransport) setAPIKey(apiKey string) {
	t.apiKey.Store(apiKey)
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if apiKey, ok := t.apiKey.Load().(string); ok && apiKey != "" {
		req.Header.Set("X-Auth-Token", apiKey)
	}
	req.Header.Set("User-Agent", userAgent)
	return t.base.RoundTrip(req)
}
