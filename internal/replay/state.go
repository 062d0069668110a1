package replay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"liquidityEngine/internal/model"
	"liquidityEngine/internal/storage/postgres"
)

// StateStore persists the position of the last applied source log.
type StateStore interface {
	Load(ctx context.Context) (model.Progress, bool, error)
	Save(ctx context.Context, progress model.Progress) error
}

// FileStateStore keeps progress in a small JSON document. Writes replace the
// file atomically so a crash never leaves a partial state behind.
type FileStateStore struct {
	Path string
}

type fileState struct {
	model.Progress
	SavedAt time.Time `json:"saved_at"`
}

func (s *FileStateStore) Load(context.Context) (model.Progress, bool, error) {
	if s == nil || s.Path == "" {
		return model.Progress{}, false, nil
	}
	raw, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return model.Progress{}, false, nil
	}
	if err != nil {
		return model.Progress{}, false, fmt.Errorf("read state %s: %w", s.Path, err)
	}
	var st fileState
	if err := json.Unmarshal(raw, &st); err != nil {
		return model.Progress{}, false, fmt.Errorf("parse state %s: %w", s.Path, err)
	}
	return st.Progress, true, nil
}

func (s *FileStateStore) Save(_ context.Context, progress model.Progress) error {
	if s == nil || s.Path == "" {
		return nil
	}
	raw, err := json.Marshal(fileState{Progress: progress, SavedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.Path)+".*")
	if err != nil {
		return fmt.Errorf("create state tmp: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close state: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}

// DBStateStore keeps progress in the replay_state table under Name, so
// several replays can share one database.
type DBStateStore struct {
	Store *postgres.Store
	Name  string
}

func (s *DBStateStore) Load(ctx context.Context) (model.Progress, bool, error) {
	if s == nil || s.Store == nil {
		return model.Progress{}, false, nil
	}
	return s.Store.LoadState(ctx, s.Name)
}

func (s *DBStateStore) Save(ctx context.Context, progress model.Progress) error {
	if s == nil || s.Store == nil {
		return nil
	}
	return s.Store.SaveState(ctx, s.Name, progress)
}
