package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/yesoreyeram/dagflow/pkg/types"
)

const (
	taskFileName   = "_task.json"
	resultFileName = "_result.json"
	errorFileName  = "_error.json"
)

// TaskSnapshot is the record written to an element directory before
// execution begins. Kept deliberately small: the runnable itself is
// reconstructed by the caller, never deserialised from disk.
type TaskSnapshot struct {
	ClassName string    `json:"class_name"`
	Checksum  string    `json:"checksum"`
	CreatedAt time.Time `json:"created_at"`
}

// Cache is an ordered set of cache roots. Writes always target roots[0];
// reads consult roots front-to-back, stopping at the first root that
// contains a directory named for the checksum.
type Cache struct {
	roots   []string
	metrics Metrics
}

// Metrics receives cache lookup outcomes. A *telemetry.Provider satisfies
// it; leaving it unset disables recording.
type Metrics interface {
	RecordCacheLookup(ctx context.Context, checksum string, hit bool)
}

// New constructs a Cache over the given roots, in priority order. At least
// one root is required.
func New(roots ...string) (*Cache, error) {
	if len(roots) == 0 {
		return nil, ErrNoRoots
	}
	cp := make([]string, len(roots))
	copy(cp, roots)
	return &Cache{roots: cp}, nil
}

// SetMetrics attaches a lookup-outcome sink consulted on every Load.
func (c *Cache) SetMetrics(m Metrics) {
	c.metrics = m
}

// Roots returns the configured cache roots, in priority order.
func (c *Cache) Roots() []string {
	cp := make([]string, len(c.roots))
	copy(cp, c.roots)
	return cp
}

// ElementDir returns the write-root directory for checksum — the directory
// Reserve, Save and RecordError operate on.
func (c *Cache) ElementDir(checksum string) string {
	return filepath.Join(c.roots[0], checksum)
}

// Load restores a finished result for checksum, searching roots in order.
// found is false both when no root has anything for this checksum and when
// the first matching root's element is still in progress (no _result or
// _error file yet) — in the latter case the search stops there rather than
// falling through to a stale completed run in a later root.
func (c *Cache) Load(checksum string) (result types.Result, found bool, err error) {
	result, found, err = c.load(checksum)
	if c.metrics != nil && err == nil {
		c.metrics.RecordCacheLookup(context.Background(), checksum, found)
	}
	return result, found, err
}

func (c *Cache) load(checksum string) (result types.Result, found bool, err error) {
	for _, root := range c.roots {
		dir := filepath.Join(root, checksum)
		info, statErr := os.Stat(dir)
		if statErr != nil {
			if os.IsNotExist(statErr) {
				continue
			}
			return types.Result{}, false, fmt.Errorf("cache: stat %s: %w", dir, statErr)
		}
		if !info.IsDir() {
			continue
		}

		if r, ok, loadErr := loadError(dir); loadErr != nil {
			return types.Result{}, false, loadErr
		} else if ok {
			return r, true, nil
		}

		if r, ok, loadErr := loadResult(dir); loadErr != nil {
			return types.Result{}, false, loadErr
		} else if ok {
			return r, true, nil
		}

		// Directory exists but neither terminal file is present: in
		// progress. Stop searching rather than consult a later root.
		return types.Result{}, false, nil
	}
	return types.Result{}, false, nil
}

// Reserve claims checksum's element directory in the write root, returning
// ErrAlreadyClaimed if it already exists (completed, failed, or claimed by a
// concurrent writer). Locking happens separately via AcquireLock.
func (c *Cache) Reserve(checksum string) (dir string, err error) {
	dir = c.ElementDir(checksum)
	if _, statErr := os.Stat(dir); statErr == nil {
		return dir, fmt.Errorf("%w: %s", ErrAlreadyClaimed, checksum)
	} else if !os.IsNotExist(statErr) {
		return dir, fmt.Errorf("cache: stat %s: %w", dir, statErr)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return dir, fmt.Errorf("cache: create element dir: %w", err)
	}
	return dir, nil
}

// Save writes the task snapshot and the successful result into dir,
// each via write-to-temp-then-rename so readers only ever observe a
// complete file. Call this only while holding dir's write lock.
func (c *Cache) Save(dir string, task TaskSnapshot, result types.Result) error {
	if err := writeJSON(filepath.Join(dir, taskFileName), task); err != nil {
		return fmt.Errorf("cache: write task snapshot: %w", err)
	}
	dto := resultDTO{
		Output:    result.Output,
		Runtime:   result.Runtime,
		StartedAt: result.StartedAt,
		EndedAt:   result.EndedAt,
	}
	if err := writeJSON(filepath.Join(dir, resultFileName), dto); err != nil {
		return fmt.Errorf("cache: write result: %w", err)
	}
	return nil
}

// RecordError persists a failed element's error, preserving its message.
func (c *Cache) RecordError(dir string, elementErr error, startedAt, endedAt time.Time) error {
	if elementErr == nil {
		return fmt.Errorf("cache: RecordError called with nil error")
	}
	dto := errorDTO{
		Message:   elementErr.Error(),
		StartedAt: startedAt,
		EndedAt:   endedAt,
	}
	if err := writeJSON(filepath.Join(dir, errorFileName), dto); err != nil {
		return fmt.Errorf("cache: write error: %w", err)
	}
	return nil
}

type resultDTO struct {
	Output    types.Record  `json:"output"`
	Runtime   types.Runtime `json:"runtime"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   time.Time     `json:"ended_at"`
}

type errorDTO struct {
	Message   string    `json:"message"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
}

func loadResult(dir string) (types.Result, bool, error) {
	path := filepath.Join(dir, resultFileName)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return types.Result{}, false, nil
		}
		return types.Result{}, false, err
	}
	if info.Size() == 0 {
		return types.Result{}, false, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Result{}, false, err
	}
	var dto resultDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return types.Result{}, false, fmt.Errorf("cache: decode %s: %w", path, err)
	}
	return types.Result{
		Output:    dto.Output,
		Runtime:   dto.Runtime,
		StartedAt: dto.StartedAt,
		EndedAt:   dto.EndedAt,
	}, true, nil
}

func loadError(dir string) (types.Result, bool, error) {
	path := filepath.Join(dir, errorFileName)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return types.Result{}, false, nil
		}
		return types.Result{}, false, err
	}
	if info.Size() == 0 {
		return types.Result{}, false, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Result{}, false, err
	}
	var dto errorDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return types.Result{}, false, fmt.Errorf("cache: decode %s: %w", path, err)
	}
	return types.Result{
		Err:       errors.New(dto.Message),
		StartedAt: dto.StartedAt,
		EndedAt:   dto.EndedAt,
	}, true, nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
