// Package controller owns the daemon's settings. It builds one parameter per
// Definition, runs every read and mutation on the dispatch loop that also
// performs deferred commits, and publishes each change on the event bus.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/micro-nova/amplipi-prefs/internal/dispatch"
	"github.com/micro-nova/amplipi-prefs/internal/events"
	"github.com/micro-nova/amplipi-prefs/internal/models"
	"github.com/micro-nova/amplipi-prefs/internal/prefs"
	"github.com/micro-nova/amplipi-prefs/internal/settings"
)

// Controller is the single owner of the registered settings.
// The store is only touched from the loop goroutine.
type Controller struct {
	ctx    context.Context
	store  prefs.Store
	bus    *events.Bus
	loop   *dispatch.Loop
	reg    *settings.Registry
	writes *rate.Limiter
}

// Option configures a Controller.
type Option func(*Controller)

// errWriteLimited is returned inside the loop when the write limiter refuses a Set.
var errWriteLimited = errors.New("controller: write limit exceeded")

// WithWriteLimit caps store-writing Set calls (auto-commit settings) at r per
// second with the given burst. Debounced and manual settings are not limited.
func WithWriteLimit(r rate.Limit, burst int) Option {
	return func(c *Controller) {
		c.writes = rate.NewLimiter(r, burst)
	}
}

// New creates a Controller and registers a parameter for each definition,
// initialised from store. ctx bounds deferred commits; loop must be running
// (or about to run) for any operation to complete.
func New(ctx context.Context, store prefs.Store, bus *events.Bus, loop *dispatch.Loop, defs []Definition, opts ...Option) (*Controller, error) {
	if store == nil {
		return nil, settings.ErrNilStore
	}
	if loop == nil {
		return nil, settings.ErrNilDispatcher
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if bus == nil {
		bus = events.NewBus()
	}

	c := &Controller{
		ctx:    ctx,
		store:  store,
		bus:    bus,
		loop:   loop,
		reg:    settings.NewRegistry(),
		writes: rate.NewLimiter(rate.Inf, 0),
	}
	for _, opt := range opts {
		opt(c)
	}

	for _, d := range defs {
		s, err := c.build(d)
		if err != nil {
			return nil, err
		}
		if err := c.reg.Register(s); err != nil {
			return nil, err
		}
		slog.Debug("controller: registered setting",
			"key", s.Key(), "kind", s.Kind(), "strategy", s.Strategy(), "debounce", s.Window())
	}
	return c, nil
}

// do runs fn on the loop and waits for it.
func (c *Controller) do(ctx context.Context, fn func() *models.AppError) *models.AppError {
	var appErr *models.AppError
	err := c.loop.Call(ctx, func() { appErr = fn() })
	switch {
	case err == nil:
		return appErr
	case errors.Is(err, dispatch.ErrClosed):
		return models.ErrUnavailable("settings loop is shut down")
	default:
		return models.ErrUnavailable(err.Error())
	}
}

func (c *Controller) publish(event, key string, kind settings.Kind, v any) {
	c.bus.Publish(models.Change{
		Event: event,
		Key:   key,
		Kind:  string(kind),
		Value: v,
		At:    time.Now(),
	})
}

// toAppError maps settings errors to HTTP-facing errors.
func toAppError(err error) *models.AppError {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errWriteLimited):
		return models.ErrTooManyRequests
	case errors.Is(err, settings.ErrNotFound):
		return models.ErrNotFound(err.Error())
	case errors.Is(err, settings.ErrInvalidValue), errors.Is(err, settings.ErrInvalidKey):
		return models.ErrBadRequest(err.Error())
	default:
		return models.ErrInternal(fmt.Sprintf("store write failed: %v", err))
	}
}

func view(s settings.Setting) models.Setting {
	return models.Setting{
		Key:        s.Key(),
		Kind:       string(s.Kind()),
		Value:      s.Get(),
		Default:    s.DefaultValue(),
		Strategy:   s.Strategy().String(),
		Dirty:      s.IsDirty(),
		DebounceMS: s.Window().Milliseconds(),
		Pending:    s.Pending(),
	}
}
