package controller

import (
	"context"
	"strings"

	"github.com/micro-nova/amplipi-prefs/internal/models"
	"github.com/micro-nova/amplipi-prefs/internal/settings"
)

// Snapshot returns every setting sorted by key.
func (c *Controller) Snapshot(ctx context.Context) ([]models.Setting, *models.AppError) {
	var out []models.Setting
	appErr := c.do(ctx, func() *models.AppError {
		all := c.reg.Snapshot()
		out = make([]models.Setting, 0, len(all))
		for _, s := range all {
			out = append(out, view(s))
		}
		return nil
	})
	if appErr != nil {
		return nil, appErr
	}
	return out, nil
}

// Get returns a single setting.
func (c *Controller) Get(ctx context.Context, key string) (models.Setting, *models.AppError) {
	return c.withSetting(ctx, key, func(settings.Setting) error { return nil })
}

// Set parses raw for the setting's kind and applies it. Auto-commit settings
// are written before Set returns and count against the write limit;
// debounced settings are written once the window has passed without further
// updates.
func (c *Controller) Set(ctx context.Context, key, raw string) (models.Setting, *models.AppError) {
	return c.withSetting(ctx, key, func(s settings.Setting) error {
		if s.Strategy() == settings.AutoCommit && !c.writes.Allow() {
			return errWriteLimited
		}
		return s.SetFromString(raw)
	})
}

// Commit writes a setting's pending value now.
func (c *Controller) Commit(ctx context.Context, key string) (models.Setting, *models.AppError) {
	return c.withSetting(ctx, key, settings.Setting.Commit)
}

// Flush commits every dirty setting, including debounced ones still inside
// their window, then flushes the store.
func (c *Controller) Flush(ctx context.Context) *models.AppError {
	return c.do(ctx, func() *models.AppError {
		if err := c.reg.CommitAll(); err != nil {
			return toAppError(err)
		}
		if err := c.store.Flush(); err != nil {
			return models.ErrInternal("store flush failed: " + err.Error())
		}
		return nil
	})
}

// Reload re-reads every clean setting from the store, typically after the
// backing file was edited externally. It returns the keys that changed.
func (c *Controller) Reload(ctx context.Context) ([]string, *models.AppError) {
	var changed []string
	appErr := c.do(ctx, func() *models.AppError {
		for _, s := range c.reg.Snapshot() {
			if s.Reload() {
				changed = append(changed, s.Key())
			}
		}
		return nil
	})
	return changed, appErr
}

func (c *Controller) withSetting(ctx context.Context, key string, fn func(settings.Setting) error) (models.Setting, *models.AppError) {
	key = strings.TrimSpace(key)
	if key == "" {
		return models.Setting{}, models.ErrBadRequest("setting key is required")
	}
	var out models.Setting
	appErr := c.do(ctx, func() *models.AppError {
		s, err := c.reg.Lookup(key)
		if err != nil {
			return toAppError(err)
		}
		err = fn(s)
		out = view(s)
		return toAppError(err)
	})
	if appErr != nil {
		return models.Setting{}, appErr
	}
	return out, nil
}
