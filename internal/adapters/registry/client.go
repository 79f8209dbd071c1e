// Package registry streams changes from a CouchDB-style registry replica.
package registry

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.trai.ch/ims/internal/core/domain"
	"go.trai.ch/ims/internal/core/ports"
	"go.trai.ch/zerr"
)

const (
	// connectTimeout bounds dialing and waiting for response headers. The body
	// of a continuous feed has no deadline.
	connectTimeout = 30 * time.Second

	readBufferSize = 64 << 10
)

var _ ports.ChangeFeed = (*Client)(nil)

// Client reads the continuous _changes feed of a registry.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     ports.Logger
}

// NewClient creates a feed client for the registry at baseURL.
func NewClient(baseURL string, logger ports.Logger) *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   connectTimeout,
		ResponseHeaderTimeout: connectTimeout,
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Transport: transport},
		logger:     logger,
	}
}

// Stream delivers every change after since to fn, in feed order.
// It returns nil when the server closes the feed.
func (c *Client) Stream(ctx context.Context, since uint64, fn ports.ChangeHandler) error {
	url := fmt.Sprintf("%s/_changes?feed=continuous&include_docs=true&since=%d", c.baseURL, since)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return zerr.With(errors.Join(domain.ErrFeedRequestFailed, err), "url", url)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return zerr.With(errors.Join(domain.ErrFeedRequestFailed, err), "url", url)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		statusErr := zerr.With(zerr.Wrap(domain.ErrFeedStatus, "unexpected response"), "status_code", resp.StatusCode)
		return zerr.With(statusErr, "url", url)
	}

	c.logger.Debug("change feed connected", "since", since)

	reader := bufio.NewReaderSize(resp.Body, readBufferSize)
	for {
		line, readErr := reader.ReadBytes('\n')

		if len(bytes.TrimSpace(line)) > 0 {
			event, ok, err := parseLine(line)
			if err != nil {
				return err
			}
			if ok {
				if err := fn(ctx, event); err != nil {
					return err
				}
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return nil
			}
			return zerr.With(errors.Join(domain.ErrFeedRequestFailed, readErr), "url", url)
		}
	}
}
