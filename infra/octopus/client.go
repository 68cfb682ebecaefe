// Package octopus fetches standard unit rate feeds over HTTPS.
package octopus

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/kilianp07/tariffticker/auth"
	"github.com/kilianp07/tariffticker/core/acquisition"
	"github.com/kilianp07/tariffticker/infra/logger"
)

const defaultMaxBody = 4 << 20

// Config defines how the API is reached.
type Config struct {
	// CAFile pins the root certificates used to verify the server. Empty
	// uses the system pool.
	CAFile         string `json:"ca_file"`
	APIKey         string `json:"api_key"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	UserAgent      string `json:"user_agent"`
	MaxBodyBytes   int64  `json:"max_body_bytes"`
	// TrustSystemClock treats the local clock as synchronised at start
	// instead of waiting for a Date header.
	TrustSystemClock bool `json:"trust_system_clock"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	if c.UserAgent == "" {
		c.UserAgent = "tariffticker/1"
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = defaultMaxBody
	}
}

// LoadCAPool reads a PEM bundle into a certificate pool.
func LoadCAPool(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificate found in %s", path)
	}
	return pool, nil
}

// Client implements acquisition.Fetcher.
type Client struct {
	http      *http.Client
	userAgent string
	maxBody   int64
	log       logger.Logger
}

// NewClient builds a client from cfg. cfg must already carry its defaults.
func NewClient(cfg Config) (*Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.CAFile != "" {
		pool, err := LoadCAPool(cfg.CAFile)
		if err != nil {
			return nil, err
		}
		transport.TLSClientConfig = &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}
	}
	return &Client{
		http: &http.Client{
			Transport: &auth.Transport{Base: transport, Auth: auth.NewAPIKey(auth.Conf{APIKey: cfg.APIKey})},
			Timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		userAgent: cfg.UserAgent,
		maxBody:   cfg.MaxBodyBytes,
		log:       logger.New("octopus"),
	}, nil
}

// Fetch performs a GET on url. Any HTTP status is a response; only transport
// failures return an error.
func (c *Client) Fetch(ctx context.Context, url string) (acquisition.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return acquisition.Response{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return acquisition.Response{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	limit := c.maxBody
	if limit <= 0 {
		limit = defaultMaxBody
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return acquisition.Response{}, fmt.Errorf("failed to read response: %w", err)
	}
	c.log.Debugf("GET %s: %d, %d bytes in %s", url, resp.StatusCode, len(body), time.Since(start))
	return acquisition.Response{
		Status: resp.StatusCode,
		Body:   body,
		Date:   resp.Header.Get("Date"),
	}, nil
}
