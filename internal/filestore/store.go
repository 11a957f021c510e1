// Package filestore implements cache.Store on the local filesystem.
//
// Layout:
//
//	{Dir}/
//	  {fp[0:2]}/
//	    {fp}.json
//
// Each entry is written to a temp file in its shard directory and renamed
// into place, so a crash never leaves a partial entry at the canonical path.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/specialistvlad/sweepgrid/internal/cache"
	"github.com/specialistvlad/sweepgrid/internal/fingerprint"
)

// record is the on-disk shape of a cache.Entry.
type record struct {
	Fingerprint string          `json:"fingerprint"`
	Task        string          `json:"task"`
	Status      string          `json:"status"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	Outputs     json.RawMessage `json:"outputs"`
}

type Store struct {
	Dir string
}

// New creates a store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("filestore: directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return &Store{Dir: dir}, nil
}

func (s *Store) Get(ctx context.Context, fp fingerprint.Fingerprint) (*cache.Entry, error) {
	path, err := s.entryPath(fp)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, cache.ErrNotFound
		}
		return nil, fmt.Errorf("reading cache entry: %w", err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parsing cache entry %s: %w", path, err)
	}
	status, err := cache.ParseStatus(rec.Status)
	if err != nil {
		return nil, err
	}
	outputs, err := cache.UnmarshalOutputs(rec.Outputs)
	if err != nil {
		return nil, err
	}
	return &cache.Entry{
		Fingerprint: fingerprint.Fingerprint(rec.Fingerprint),
		Task:        rec.Task,
		Outputs:     outputs,
		Status:      status,
		Error:       rec.Error,
		CreatedAt:   rec.CreatedAt,
	}, nil
}

func (s *Store) Put(ctx context.Context, e *cache.Entry) error {
	if e == nil {
		return errors.New("cache entry is nil")
	}
	path, err := s.entryPath(e.Fingerprint)
	if err != nil {
		return err
	}
	outputs, err := cache.MarshalOutputs(e.Outputs)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(record{
		Fingerprint: e.Fingerprint.String(),
		Task:        e.Task,
		Status:      e.Status.String(),
		Error:       e.Error,
		CreatedAt:   e.CreatedAt.UTC(),
		Outputs:     outputs,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling cache entry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	if err := writeFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, fp fingerprint.Fingerprint) error {
	path, err := s.entryPath(fp)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing cache entry: %w", err)
	}
	return nil
}

// Flush is a no-op: every Put is already durable once it returns.
func (s *Store) Flush(ctx context.Context) error {
	return nil
}

// entryPath shards entries by the first two characters of the fingerprint to
// keep directories small.
func (s *Store) entryPath(fp fingerprint.Fingerprint) (string, error) {
	name := fp.String()
	if len(name) < 2 || strings.ContainsAny(name, `/\.`) {
		return "", fmt.Errorf("invalid fingerprint %q", name)
	}
	return filepath.Join(s.Dir, name[:2], name+".json"), nil
}

// syncFile flushes a written entry to stable storage. Tests replace it.
var syncFile = (*os.File).Sync

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := syncFile(tmp); err != nil {
		return fmt.Errorf("syncing cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

var _ cache.Store = (*Store)(nil)
