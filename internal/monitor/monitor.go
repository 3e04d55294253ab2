// Package monitor periodically snapshots simulation health to a status
// file and queues a performance sample for storage.
package monitor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aeroterra/sim/internal/logging"
	"github.com/aeroterra/sim/internal/worker"
	"github.com/aeroterra/sim/pkg/core"
)

// TickInfoProvider reports the current state of the simulation loop.
type TickInfoProvider interface {
	CurrentTick() uint64
	LastTickDuration() time.Duration
	SessionID() uint
}

// Dependencies holds the monitor service collaborators.
type Dependencies struct {
	LogManager    *logging.SlogManager
	WorkerManager *worker.Manager
	Queues        *worker.Queues
	Sim           TickInfoProvider
	StatusDir     string
	Interval      time.Duration
}

// Service manages status monitoring.
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
}

// NewService creates a new monitor service.
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = time.Second
	}
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running.
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Snapshot builds the current performance sample.
func (s *Service) Snapshot() core.PerfSample {
	return core.PerfSample{
		SessionID:           s.deps.Sim.SessionID(),
		Time:                time.Now(),
		Tick:                s.deps.Sim.CurrentTick(),
		TickDurationMs:      float32(s.deps.Sim.LastTickDuration().Seconds() * 1000),
		FlightQueueLen:      uint16(s.deps.Queues.Flight.Len()),
		GroundQueueLen:      uint16(s.deps.Queues.Ground.Len()),
		EventQueueLen:       uint16(s.deps.Queues.Modes.Len()),
		LastWriteDurationMs: float32(s.deps.WorkerManager.GetLastDBWriteDuration().Milliseconds()),
	}
}

// Start starts the status monitor goroutine.
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		logger := s.deps.LogManager.Logger()
		logger.Debug("Starting status monitor goroutine")

		statusFile, err := os.Create(filepath.Join(s.deps.StatusDir, "status.txt"))
		if err != nil {
			logger.Error("Error creating status file", "error", err)
		}
		defer func() {
			if statusFile != nil {
				statusFile.Close()
			}
		}()

		for {
			select {
			case <-s.stopChan:
				return
			default:
				time.Sleep(s.deps.Interval)

				perf := s.Snapshot()
				if perf.SessionID == 0 {
					continue
				}

				if statusFile != nil {
					line, err := json.MarshalIndent(&perf, "", "  ")
					if err != nil {
						line = []byte(fmt.Sprintf(`{"error": "%s"}`, err))
					}
					statusFile.Truncate(0)
					statusFile.Seek(0, 0)
					statusFile.Write(line)
					statusFile.WriteString("\n")
				}

				s.deps.Queues.Perf.Push(perf)
			}
		}
	}()

	return nil
}

// Stop stops the status monitor.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		close(s.stopChan)
	}
}
