package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	"BandView/internal/domain/models"
	domrepo "BandView/internal/domain/repository"
	pkghttp "BandView/pkg/http"
	applogger "BandView/pkg/logger"
)

// HTTPSeriesStore fetches the OHLCV JSON array from a URL. symbol and tf are
// sent as query parameters; a static file server simply ignores them.
type HTTPSeriesStore struct {
	client   *pkghttp.Client
	url      string
	retries  uint64
	interval time.Duration
	l        *applogger.Logger
}

func NewHTTPSeriesStore(client *pkghttp.Client, rawURL string, retries int) *HTTPSeriesStore {
	if retries < 0 {
		retries = 0
	}
	return &HTTPSeriesStore{client: client, url: rawURL, retries: uint64(retries), interval: 200 * time.Millisecond}
}

// SetLogger injects a structured logger.
func (s *HTTPSeriesStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *HTTPSeriesStore) Series(ctx context.Context, symbol string, tf domrepo.Timeframe) ([]models.OHLCV, error) {
	q := url.Values{}
	if symbol != "" {
		q.Set("symbol", symbol)
	}
	if tf != "" {
		q.Set("tf", string(tf))
	}

	var body []byte
	attempt := 0
	op := func() error {
		attempt++
		body = nil
		err := s.client.SendAndParse(ctx, &pkghttp.RequestOptions{
			Method:      pkghttp.MethodGet,
			URL:         s.url,
			QueryParams: q,
		}, &body)
		if err == nil {
			return nil
		}
		var se *pkghttp.StatusError
		if errors.As(err, &se) && !se.Temporary() {
			return backoff.Permanent(err)
		}
		if s.l != nil {
			s.l.Warn("http series fetch retry",
				applogger.String("url", s.url),
				applogger.Int("attempt", attempt),
				applogger.Error(err),
			)
		}
		return err
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = s.interval
	eb.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(eb, s.retries), ctx)
	if err := backoff.Retry(op, b); err != nil {
		var se *pkghttp.StatusError
		if errors.As(err, &se) && se.Code == 404 {
			return nil, fmt.Errorf("%w: %s %s", domrepo.ErrSeriesNotFound, symbol, tf)
		}
		return nil, fmt.Errorf("fetch %s: %w", s.url, err)
	}

	series, err := decodeSeries(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", s.url, err)
	}
	return series, nil
}
