package replay

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"liquidityEngine/internal/model"
)

func TestFileStateStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := &FileStateStore{Path: filepath.Join(t.TempDir(), "nested", "state.json")}

	if _, ok, err := store.Load(ctx); err != nil || ok {
		t.Fatalf("expected empty state, ok=%v err=%v", ok, err)
	}

	want := model.Progress{BlockNumber: 12370000, LogIndex: 4}
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := store.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestNilStateStoresAreNoops(t *testing.T) {
	ctx := context.Background()
	var file *FileStateStore
	if err := file.Save(ctx, model.Progress{BlockNumber: 1}); err != nil {
		t.Fatalf("nil file store save: %v", err)
	}
	var db *DBStateStore
	if _, ok, err := db.Load(ctx); err != nil || ok {
		t.Fatalf("nil db store load: ok=%v err=%v", ok, err)
	}
}

func TestFileStateStoreRejectsCorruptState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := (&FileStateStore{Path: path}).Load(context.Background()); err == nil {
		t.Fatalf("expected parse error")
	}
}
