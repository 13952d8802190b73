package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	xhttp "BandView/pkg/http"
)

func TestRunContextClosesEveryResource(t *testing.T) {
	srv := xhttp.NewServer(nil, xhttp.WithHost("127.0.0.1"), xhttp.WithPort(0), xhttp.WithMetricsPath(""))
	app := New(nil, srv, nil, time.Second)

	var closed []string
	errCache := errors.New("cache gone")
	app.AddResource("publisher", func() error { closed = append(closed, "publisher"); return nil })
	app.AddResource("cache", func() error { closed = append(closed, "cache"); return errCache })
	app.AddResource("clickhouse", func() error { closed = append(closed, "clickhouse"); return nil })
	app.AddResource("skipped", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := app.RunContext(ctx)

	require.Error(t, err)
	assert.ErrorIs(t, err, errCache)
	assert.Len(t, multierr.Errors(err), 1)
	assert.Equal(t, []string{"publisher", "cache", "clickhouse"}, closed)
}

func TestRunContextCleanShutdown(t *testing.T) {
	app := New(nil, nil, nil, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.NoError(t, app.RunContext(ctx))
}
