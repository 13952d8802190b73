package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"

	xhttp "BandView/pkg/http"
	pkgkafka "BandView/pkg/kafka"
	applogger "BandView/pkg/logger"
)

// Resource is something the App closes on shutdown, in registration order.
type Resource struct {
	Name  string
	Close func() error
}

// App encapsulates the entire application lifecycle.
type App struct {
	l               *applogger.Logger
	httpServer      *xhttp.Server
	consumer        *pkgkafka.Consumer
	resources       []Resource
	shutdownTimeout time.Duration
}

// New creates an App. consumer may be nil when ingest is disabled.
func New(l *applogger.Logger, httpServer *xhttp.Server, consumer *pkgkafka.Consumer, shutdownTimeout time.Duration) *App {
	if l == nil {
		l = applogger.NewNop()
	}
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &App{
		l:               l,
		httpServer:      httpServer,
		consumer:        consumer,
		shutdownTimeout: shutdownTimeout,
	}
}

// AddResource registers r for closing on shutdown. Nil closers are ignored.
func (a *App) AddResource(name string, closeFn func() error) {
	if closeFn == nil {
		return
	}
	a.resources = append(a.resources, Resource{Name: name, Close: closeFn})
}

// Run starts the application and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts the application and blocks until ctx is done.
func (a *App) RunContext(ctx context.Context) error {
	if a.consumer != nil {
		if err := a.consumer.Start(); err != nil {
			return multierr.Append(fmt.Errorf("kafka consumer start: %w", err), a.closeResources())
		}
	}

	if a.httpServer != nil {
		if err := a.httpServer.Start(); err != nil {
			a.l.Error("http server start error", applogger.Error(err))
			return multierr.Append(err, a.shutdown())
		}
	}

	<-ctx.Done()
	a.l.Info("shutdown signal received")
	return a.shutdown()
}

// shutdown stops servers first, then ingest, then closes resources. Every
// step runs even if an earlier one fails.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	var errs error
	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.l.Error("http shutdown error", applogger.Error(err))
			errs = multierr.Append(errs, err)
		}
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
			errs = multierr.Append(errs, err)
		}
	}
	errs = multierr.Append(errs, a.closeResources())

	if errs == nil {
		a.l.Info("shutdown complete")
	}
	return errs
}

func (a *App) closeResources() error {
	var errs error
	for _, r := range a.resources {
		if err := r.Close(); err != nil {
			a.l.Warn("close error", applogger.String("resource", r.Name), applogger.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("close %s: %w", r.Name, err))
		}
	}
	return errs
}
