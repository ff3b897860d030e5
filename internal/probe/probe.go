// Package probe checks outbound connectivity to the identity endpoint.
package probe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/starford/aegis/internal/apperr"
)

// Result tokens.
const (
	ConnectionOK = "CONNEXION_OK"
	SystemReady  = "SYSTEM_READY"
)

// Defaults used when the config leaves the probe section empty.
const (
	DefaultURL     = "https://login.microsoftonline.com"
	DefaultTimeout = 5 * time.Second
)

// Prober issues a single GET against a fixed URL.
type Prober struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// New creates a Prober. Empty url and non-positive timeout fall back to the defaults.
func New(url string, timeout time.Duration, logger *slog.Logger) *Prober {
	if url == "" {
		url = DefaultURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// URL returns the probed endpoint.
func (p *Prober) URL() string { return p.url }

// Check returns ConnectionOK on a 2xx answer and STATUS_<code> for any other
// status. Transport failures come back as a Transport error carrying the client
// message. There is no retry.
func (p *Prober) Check(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return "", apperr.New(apperr.KindValidation, "check connectivity", p.url, err.Error())
	}
	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Warn("probe: request failed",
			slog.String("url", p.url),
			slog.String("error", err.Error()))
		return "", &apperr.Error{Kind: apperr.KindTransport, Op: "check connectivity", Path: p.url, Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	p.logger.Debug("probe: answered",
		slog.String("url", p.url),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return ConnectionOK, nil
	}
	return fmt.Sprintf("STATUS_%d", resp.StatusCode), nil
}

// SystemStatus reports that the backend is up.
func SystemStatus() string { return SystemReady }
