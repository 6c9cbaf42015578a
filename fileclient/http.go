package fileclient

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"github.com/vidseg/vidseg/config"
	"github.com/vidseg/vidseg/logging"
	"github.com/vidseg/vidseg/utils"
)

func init() {
	RegisterBackend("http", openHTTP)
}

// HTTPConfig configures the http backend.
type HTTPConfig struct {
	BaseURL        string  `json:"base_url"`
	TimeoutSeconds float64 `json:"timeout_seconds,omitempty"`
}

// HTTPClient fetches files with GET requests relative to a base URL.
type HTTPClient struct {
	base   *url.URL
	client *http.Client
	logger logging.Logger
}

func openHTTP(ctx context.Context, attributes utils.AttributeMap, logger logging.Logger) (Client, error) {
	conf, err := config.TransformAttributeMap[*HTTPConfig](attributes)
	if err != nil {
		return nil, err
	}
	return NewHTTPClient(conf, logger)
}

// NewHTTPClient returns a client for conf.
func NewHTTPClient(conf *HTTPConfig, logger logging.Logger) (*HTTPClient, error) {
	if conf.BaseURL == "" {
		return nil, utils.NewConfigurationError("base_url", "field is required")
	}
	base, err := url.Parse(conf.BaseURL)
	if err != nil {
		return nil, utils.NewConfigurationError("base_url", "%v", err)
	}
	timeout := 30 * time.Second
	if conf.TimeoutSeconds > 0 {
		timeout = time.Duration(conf.TimeoutSeconds * float64(time.Second))
	}
	return &HTTPClient{base: base, client: &http.Client{Timeout: timeout}, logger: logger}, nil
}

func (hc *HTTPClient) urlFor(p string) string {
	u := *hc.base
	u.Path = path.Join(u.Path, p)
	return u.String()
}

// Get issues a GET request for p and returns the body. Any status but 200 is an error.
func (hc *HTTPClient) Get(ctx context.Context, p string) ([]byte, error) {
	target := hc.urlFor(p)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, utils.NewIOError(p, err)
	}
	resp, err := hc.client.Do(req)
	if err != nil {
		return nil, utils.NewIOError(p, err)
	}
	defer goutils.UncheckedErrorFunc(resp.Body.Close)
	if resp.StatusCode != http.StatusOK {
		return nil, utils.NewIOError(p, errors.Errorf("GET %s: %s", target, resp.Status))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, utils.NewIOError(p, err)
	}
	return data, nil
}

// Close releases idle connections.
func (hc *HTTPClient) Close() error {
	hc.client.CloseIdleConnections()
	return nil
}
