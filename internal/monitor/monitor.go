// Package monitor periodically snapshots session state to a status file and
// exposes queue depths as OTel gauges.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
)

const defaultInterval = time.Second

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	// Snapshot returns the value written to StatusPath on every tick.
	Snapshot func() any
	// Gauges are observed on every metric collection, keyed by instrument name.
	Gauges     map[string]func() int64
	StatusPath string
	Interval   time.Duration
	Logger     *slog.Logger
	// Meter may be nil, in which case no gauges are registered.
	Meter metric.Meter
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
	reg       metric.Registration
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = defaultInterval
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// RegisterGauges creates one observable gauge per entry in Gauges, all
// served by a single callback.
func (s *Service) RegisterGauges() error {
	if s.deps.Meter == nil || len(s.deps.Gauges) == 0 {
		return nil
	}

	names := make([]string, 0, len(s.deps.Gauges))
	for name := range s.deps.Gauges {
		names = append(names, name)
	}
	sort.Strings(names)

	gauges := make(map[string]metric.Int64ObservableGauge, len(names))
	observables := make([]metric.Observable, 0, len(names))
	for _, name := range names {
		g, err := s.deps.Meter.Int64ObservableGauge(name)
		if err != nil {
			return fmt.Errorf("creating gauge %s: %w", name, err)
		}
		gauges[name] = g
		observables = append(observables, g)
	}

	reg, err := s.deps.Meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		for name, g := range gauges {
			o.ObserveInt64(g, s.deps.Gauges[name]())
		}
		return nil
	}, observables...)
	if err != nil {
		return fmt.Errorf("registering gauge callback: %w", err)
	}
	s.reg = reg
	return nil
}

// WriteStatus writes the current snapshot to StatusPath, replacing its
// previous content.
func (s *Service) WriteStatus() error {
	if s.deps.StatusPath == "" || s.deps.Snapshot == nil {
		return nil
	}
	data, err := json.MarshalIndent(s.deps.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}
	tmp := s.deps.StatusPath + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write status: %w", err)
	}
	return os.Rename(tmp, s.deps.StatusPath)
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
			close(s.done)
		}()

		logger := s.deps.Logger
		logger.Debug("Starting status monitor goroutine", "path", s.deps.StatusPath, "interval", s.deps.Interval)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopChan:
				// last snapshot reflects the final state
				if err := s.WriteStatus(); err != nil {
					logger.Error("Error writing status file", "error", err)
				}
				return
			case <-ticker.C:
				if err := s.WriteStatus(); err != nil {
					logger.Error("Error writing status file", "error", err)
				}
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for it to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()

	<-done

	if s.reg != nil {
		if err := s.reg.Unregister(); err != nil {
			s.deps.Logger.Warn("Failed to unregister gauges", "error", err)
		}
		s.reg = nil
	}
}
