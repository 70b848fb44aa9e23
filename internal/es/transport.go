package es

import (
	"context"
	"crypto/tls"
	"net/http"

	"github.com/labtiva/esprobe/internal/config"
)

// httpTransport is the round-tripper chain shared by all drivers. base is kept
// so Close can drop idle connections.
type httpTransport struct {
	base *http.Transport
	rt   http.RoundTripper
}

func newHTTPTransport(cfg *config.Config) (*httpTransport, error) {
	base := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Insecure {
		base.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true, //nolint:gosec
		}
	}

	if cfg.Timeout > 0 {
		base.ResponseHeaderTimeout = cfg.Timeout
	}

	t := &httpTransport{base: base, rt: base}
	if cfg.AWSRegion != "" {
		rt, err := newAWSTransport(context.Background(), cfg, base)
		if err != nil {
			return nil, err
		}
		t.rt = rt
	}
	return t, nil
}

func (t *httpTransport) close() {
	t.base.CloseIdleConnections()
}

func useBasicAuth(cfg *config.Config) bool {
	return cfg.AWSRegion == "" && cfg.Username != ""
}
