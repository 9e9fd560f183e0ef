// Package zeroconf advertises the settings daemon as an mDNS/DNS-SD service
// so clients on the LAN can find its API without configuration.
package zeroconf

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/grandcat/zeroconf"
)

const (
	serviceType = "_amplipi-prefs._tcp"
	domain      = "local."
)

// Service manages mDNS service registration.
type Service struct {
	name string // instance name, e.g. "amplipi"
	port int

	mu     sync.Mutex
	txt    []string
	server *zeroconf.Server
}

// New creates a zeroconf Service that will advertise the API on port with
// the given TXT records. "service=prefs" is always included.
func New(name string, port int, txt ...string) *Service {
	return &Service{
		name: name,
		port: port,
		txt:  append([]string{"service=prefs"}, txt...),
	}
}

// TXT returns the records that are (or will be) advertised.
func (s *Service) TXT() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.txt...)
}

// Start registers the mDNS service and blocks until ctx is cancelled, at which
// point it shuts down the server cleanly.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	err := s.registerLocked()
	s.mu.Unlock()
	if err != nil {
		return err
	}

	<-ctx.Done()

	s.mu.Lock()
	if s.server != nil {
		s.server.Shutdown()
		s.server = nil
	}
	s.mu.Unlock()
	slog.Info("zeroconf: mDNS service unregistered", "name", s.name)
	return nil
}

// UpdateTXT replaces the TXT records. grandcat/zeroconf has no live TXT
// update, so a running registration is shut down and registered again.
func (s *Service) UpdateTXT(records []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return fmt.Errorf("zeroconf: server not started")
	}
	s.txt = append([]string{"service=prefs"}, records...)
	s.server.Shutdown()
	s.server = nil
	return s.registerLocked()
}

func (s *Service) registerLocked() error {
	server, err := zeroconf.Register(
		s.name,      // instance name
		serviceType, // service type
		domain,      // domain
		s.port,      // port
		s.txt,       // TXT records
		nil,         // all interfaces
	)
	if err != nil {
		return fmt.Errorf("zeroconf register: %w", err)
	}
	s.server = server
	slog.Info("zeroconf: registered mDNS service",
		"name", s.name,
		"port", s.port,
		"txt", s.txt,
	)
	return nil
}
