package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/alekLukanen/errs"
	"github.com/hashicorp/go-retryablehttp"
)

type HTTPFetcherOptions struct {
	Timeout  time.Duration
	RetryMax int
}

// HTTPFetcher downloads a source document with a single GET request.
type HTTPFetcher struct {
	logger *slog.Logger
	client *retryablehttp.Client
}

func NewHTTPFetcher(logger *slog.Logger, options HTTPFetcherOptions) *HTTPFetcher {
	client := retryablehttp.NewClient()
	client.RetryMax = max(options.RetryMax, 0)
	client.Logger = logger
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if options.Timeout > 0 {
		client.HTTPClient.Timeout = options.Timeout
	}
	return &HTTPFetcher{
		logger: logger,
		client: client,
	}
}

func (obj *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.Wrap(err)
	}

	resp, err := obj.client.Do(req)
	if err != nil {
		return nil, errs.Wrap(err, fmt.Errorf("request to %s failed", url))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errs.NewStackError(fmt.Errorf("%w| %s returned %s", ErrUnexpectedStatus, url, resp.Status))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(err, fmt.Errorf("failed reading body of %s", url))
	}

	obj.logger.Debug(
		"fetched document",
		slog.String("url", url),
		slog.Int("statusCode", resp.StatusCode),
		slog.Int("numBytes", len(data)),
	)
	return data, nil
}
