// Package api implements the HTTP REST API for the settings daemon.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/micro-nova/amplipi-prefs/internal/models"
)

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	ctrl   Controller
	events EventBus
}

// Controller is the interface the handlers use to read and change settings.
type Controller interface {
	Snapshot(ctx context.Context) ([]models.Setting, *models.AppError)
	Get(ctx context.Context, key string) (models.Setting, *models.AppError)
	Set(ctx context.Context, key, raw string) (models.Setting, *models.AppError)
	Commit(ctx context.Context, key string) (models.Setting, *models.AppError)
	Flush(ctx context.Context) *models.AppError
}

// EventBus is the interface for subscribing to setting changes.
type EventBus interface {
	Subscribe(id string) <-chan models.Change
	Unsubscribe(id string)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an AppError as a JSON response.
func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	if appErr, ok := err.(*models.AppError); ok {
		w.WriteHeader(appErr.Status)
		_ = json.NewEncoder(w).Encode(appErr)
		return
	}
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(models.ErrInternal(err.Error()))
}

// rawValue turns a decoded JSON scalar into the textual form the controller
// parses. Numbers must be decoded with UseNumber so their text survives.
func rawValue(v any) (string, *models.AppError) {
	switch x := v.(type) {
	case string:
		return x, nil
	case bool:
		return strconv.FormatBool(x), nil
	case json.Number:
		return x.String(), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case nil:
		return "", models.ErrBadRequest("value is required")
	default:
		return "", models.ErrBadRequest("value must be a string, number or bool")
	}
}
