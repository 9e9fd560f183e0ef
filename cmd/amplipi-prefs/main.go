// Command amplipi-prefs is the AmpliPi settings daemon. It keeps typed
// settings in a backing store, debounces writes from sliders, and serves
// them over a small REST + SSE API.
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/micro-nova/amplipi-prefs/internal/api"
	"github.com/micro-nova/amplipi-prefs/internal/auth"
	"github.com/micro-nova/amplipi-prefs/internal/controller"
	"github.com/micro-nova/amplipi-prefs/internal/dispatch"
	"github.com/micro-nova/amplipi-prefs/internal/events"
	"github.com/micro-nova/amplipi-prefs/internal/maintenance"
	"github.com/micro-nova/amplipi-prefs/internal/models"
	"github.com/micro-nova/amplipi-prefs/internal/prefs"
	"github.com/micro-nova/amplipi-prefs/internal/zeroconf"
)

var version = "dev"

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		slog.Error("invalid configuration", "err", err)
		os.Exit(2)
	}

	logFile := setupLogging(cfg)
	if logFile != nil {
		defer logFile.Close()
	}

	if err := os.MkdirAll(cfg.ConfigDir, 0755); err != nil {
		slog.Error("cannot create config directory", "path", cfg.ConfigDir, "err", err)
		os.Exit(1)
	}

	// Graceful shutdown context
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := openStore(cfg)
	if err != nil {
		slog.Error("cannot open settings store", "store", cfg.Store, "err", err)
		os.Exit(1)
	}
	defer closeStore()
	slog.Info("settings store opened", "store", cfg.Store, "path", store.Path())

	// The loop is the only goroutine that touches the store. It keeps running
	// past ctx so the final flush can still be scheduled on it.
	loopCtx, stopLoop := context.WithCancel(context.Background())
	loop := dispatch.NewLoop()
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		_ = loop.Run(loopCtx)
	}()

	bus := events.NewBus()

	var opts []controller.Option
	if cfg.WriteRate > 0 {
		opts = append(opts, controller.WithWriteLimit(rate.Limit(cfg.WriteRate), cfg.WriteBurst))
	}
	ctrl, err := controller.New(ctx, store, bus, loop, controller.DefaultDefinitions(), opts...)
	if err != nil {
		slog.Error("controller initialization failed", "err", err)
		os.Exit(1)
	}

	// External edits to the prefs file
	if js, ok := store.(*prefs.JSONStore); ok {
		go func() {
			err := js.Watch(ctx, func() {
				if keys, appErr := ctrl.Reload(ctx); appErr != nil {
					slog.Warn("reload after external edit failed", "err", appErr)
				} else if len(keys) > 0 {
					slog.Info("settings changed on disk", "keys", keys)
				}
			})
			if err != nil {
				slog.Warn("prefs watcher stopped", "err", err)
			}
		}()
	}

	// Daily settings snapshots
	maint := maintenance.New(filepath.Join(cfg.ConfigDir, "backups"), func(ctx context.Context) ([]models.Setting, error) {
		all, appErr := ctrl.Snapshot(ctx)
		if appErr != nil {
			return nil, appErr
		}
		return all, nil
	})
	go maint.Start(ctx)

	// Auth service
	authSvc, err := auth.NewService(cfg.ConfigDir)
	if err != nil {
		slog.Error("auth service initialization failed", "err", err)
		os.Exit(1)
	}
	defer authSvc.Close()

	// Zeroconf mDNS registration
	if cfg.Zeroconf {
		mode := "key"
		if authSvc.IsOpenMode() {
			mode = "open"
		}
		zc := zeroconf.New(cfg.Name, listenPort(cfg.Addr), "version="+version, "store="+cfg.Store, "auth="+mode)
		go func() {
			if err := zc.Start(ctx); err != nil {
				slog.Warn("zeroconf failed", "err", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      api.NewRouter(ctrl, authSvc, bus),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // 0 = no timeout (needed for SSE)
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("amplipi-prefs listening", "addr", cfg.Addr, "config", cfg.ConfigDir, "version", version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			cancel()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()

	if err := srv.Shutdown(shutCtx); err != nil {
		slog.Warn("server shutdown error", "err", err)
	}

	// Write anything still inside its debounce window, then stop the loop.
	if appErr := ctrl.Flush(shutCtx); appErr != nil {
		slog.Warn("failed to flush settings", "err", appErr)
	}
	stopLoop()
	<-loopDone

	slog.Info("shutdown complete")
}

// setupLogging installs the default slog logger. With a log file configured,
// output goes to stderr and a rotated file.
func setupLogging(cfg Config) io.Closer {
	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}

	var w io.Writer = os.Stderr
	var file *lumberjack.Logger
	if cfg.LogFile != "" {
		file = &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    10, // MB
			MaxAge:     3,
			MaxBackups: 3,
		}
		w = io.MultiWriter(os.Stderr, file)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel})))

	if file == nil {
		return nil
	}
	return file
}

// openStore opens the configured backing store and returns a function that
// releases it.
func openStore(cfg Config) (prefs.Store, func(), error) {
	switch cfg.Store {
	case "memory":
		return prefs.NewMemStore(), func() {}, nil
	case "sqlite":
		s, err := prefs.OpenSQLiteStore(filepath.Join(cfg.ConfigDir, "prefs.db"))
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			if err := s.Close(); err != nil {
				slog.Warn("failed to close sqlite store", "err", err)
			}
		}, nil
	default:
		s, err := prefs.OpenJSONStore(cfg.ConfigDir)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			if err := s.Flush(); err != nil {
				slog.Warn("failed to flush prefs file", "err", err)
			}
		}, nil
	}
}

// listenPort extracts the port from a listen address, defaulting to 80.
func listenPort(addr string) int {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 80
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return 80
	}
	return port
}
