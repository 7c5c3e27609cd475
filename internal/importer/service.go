package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RunTimeout is the maximum duration for a single import run.
var RunTimeout = 10 * time.Minute

// runRetention is how long finished runs stay queryable.
var runRetention = 30 * time.Minute

// RunState is the lifecycle phase of an import run.
type RunState string

const (
	StateRunning   RunState = "running"
	StateComplete  RunState = "complete"
	StateFailed    RunState = "failed"
	StateCancelled RunState = "cancelled"
)

// RunStatus is a point-in-time snapshot of an import run.
type RunStatus struct {
	ID         string    `json:"id"`
	FileName   string    `json:"fileName"`
	State      RunState  `json:"state"`
	Result     *Result   `json:"result,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt,omitzero"`
}

// Service manages asynchronous import runs: it assigns run identifiers,
// executes imports in the background with a bounded timeout, and keeps
// finished results queryable for a retention window.
type Service struct {
	im *Importer

	mu   sync.RWMutex
	runs map[string]*activeRun
}

type activeRun struct {
	status  RunStatus
	cancel  context.CancelFunc
	done    chan struct{}
	tmpFile string // removed after the run when non-empty
}

// NewService creates a Service around the given Importer.
func NewService(im *Importer) *Service {
	return &Service{
		im:   im,
		runs: make(map[string]*activeRun),
	}
}

// StartImport begins an asynchronous run over uploaded CSV bytes.
// It returns the run ID immediately; poll Status for the outcome.
func (s *Service) StartImport(fileName string, data []byte) (string, error) {
	tmp, err := os.CreateTemp("", "cinetrack-import-*.csv")
	if err != nil {
		return "", fmt.Errorf("stage upload: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("stage upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("stage upload: %w", err)
	}
	return s.start(fileName, tmp.Name(), true), nil
}

// StartImportPath begins an asynchronous run over an existing file.
func (s *Service) StartImportPath(path string) string {
	return s.start(filepath.Base(path), path, false)
}

func (s *Service) start(fileName, path string, temp bool) string {
	runID := uuid.New().String()
	ctx, cancel := context.WithTimeout(context.Background(), RunTimeout)

	run := &activeRun{
		status: RunStatus{
			ID:        runID,
			FileName:  fileName,
			State:     StateRunning,
			StartedAt: time.Now(),
		},
		cancel: cancel,
		done:   make(chan struct{}),
	}
	if temp {
		run.tmpFile = path
	}

	s.mu.Lock()
	s.runs[runID] = run
	s.mu.Unlock()

	go s.execute(ctx, run, path)
	return runID
}

func (s *Service) execute(ctx context.Context, run *activeRun, path string) {
	defer func() {
		run.cancel()
		if run.tmpFile != "" {
			os.Remove(run.tmpFile)
		}
		close(run.done)
		s.expire(run.status.ID, runRetention)
	}()

	result := s.im.Run(ctx, path)

	s.mu.Lock()
	defer s.mu.Unlock()
	run.status.Result = &result
	run.status.FinishedAt = time.Now()
	switch {
	case ctx.Err() != nil && !result.Fatal:
		run.status.State = StateCancelled
	case result.Ok():
		run.status.State = StateComplete
	default:
		run.status.State = StateFailed
	}
}

// Status returns the current snapshot of a run.
func (s *Service) Status(runID string) (RunStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[runID]
	if !ok {
		return RunStatus{}, false
	}
	return run.status, true
}

// Wait blocks until the run finishes (or ctx is done) and returns its final
// status.
func (s *Service) Wait(ctx context.Context, runID string) (RunStatus, error) {
	s.mu.RLock()
	run, ok := s.runs[runID]
	s.mu.RUnlock()
	if !ok {
		return RunStatus{}, fmt.Errorf("run not found: %s", runID)
	}
	select {
	case <-run.done:
	case <-ctx.Done():
		return RunStatus{}, ctx.Err()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return run.status, nil
}

// Cancel requests cancellation of an in-progress run. The record being
// processed finishes or fails; nothing after it starts.
func (s *Service) Cancel(runID string) error {
	s.mu.RLock()
	run, ok := s.runs[runID]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("run not found: %s", runID)
	}
	run.cancel()
	return nil
}

// ActiveRuns returns the number of runs still executing.
func (s *Service) ActiveRuns() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, run := range s.runs {
		if run.status.State == StateRunning {
			n++
		}
	}
	return n
}

// expire drops a finished run from the registry after the retention window.
func (s *Service) expire(runID string, after time.Duration) {
	time.AfterFunc(after, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.runs, runID)
	})
}
