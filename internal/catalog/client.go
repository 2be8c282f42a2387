package catalog

import (
	"context"
	"io"
	"net/http"
	"time"

	"tickerfeed/internal/model"
	"tickerfeed/pkg/exception"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

const (
	DefaultMarketsURL = "https://www.bitstamp.net/api/v2/markets/"
	DefaultTimeout    = 15 * time.Second

	maxErrorBody = 512
)

// Client fetches the exchange market list over REST.
type Client struct {
	client  *http.Client
	url     string
	timeout time.Duration
}

// NewClient creates a client for the markets endpoint at url.
func NewClient(client *http.Client, url string, timeout time.Duration) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	if url == "" {
		url = DefaultMarketsURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		client:  client,
		url:     url,
		timeout: timeout,
	}
}

// Markets returns every market listed by the exchange. Non-2xx responses are errors.
func (c *Client) Markets(ctx context.Context) ([]model.Instrument, error) {
	logs.Infof("fetching market info from %s...", c.url)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	r, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "new markets request")
	}
	r.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(r)
	if err != nil {
		logs.Errorf("failed to fetch market info, err: %+v", err)
		return nil, errors.Wrap(err, "fetch markets").With("url", c.url)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		logs.Errorf("failed to fetch market info, status: %d", resp.StatusCode)
		return nil, errors.Wrap(exception.ErrCatalogUnexpectedStatus, resp.Status).
			With("url", c.url).
			With("body", string(body))
	}

	var markets []model.Instrument
	if err := sonic.ConfigStd.NewDecoder(resp.Body).Decode(&markets); err != nil {
		logs.Errorf("failed to decode market info, err: %+v", err)
		return nil, errors.Wrap(exception.ErrCatalogDecode, err.Error())
	}

	logs.Infof("successfully fetched %d market entries", len(markets))
	return markets, nil
}
