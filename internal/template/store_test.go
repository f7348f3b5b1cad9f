package template

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "templates.yaml")
	store := NewFileStore(path)
	ctx := context.Background()

	records := []Record{
		{ID: 7, Label: "bob", Action: ActionTimeout, Time: 1767225600, Count: 2},
		{ID: 3, Label: "3", Action: ActionUnlock, Time: 1767225000, Count: 0},
	}
	if err := store.Save(ctx, records); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := []Record{records[1], records[0]}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Load() = %+v, want %+v (sorted by id)", got, want)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != filePermissions {
		t.Errorf("permissions = %o, want %o", perm, filePermissions)
	}
}

func TestFileStore_UsesHistoricalFieldNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	if err := NewFileStore(path).Save(context.Background(), []Record{{ID: 1, Label: "eve", Action: ActionUnlock}}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	for _, key := range []string{"id: 1", "name: eve", "action: unlock", "time:", "count:"} {
		if !strings.Contains(string(data), key) {
			t.Errorf("registry file missing %q:\n%s", key, data)
		}
	}
}

func TestFileStore_MissingFile(t *testing.T) {
	got, err := NewFileStore(filepath.Join(t.TempDir(), "absent.yaml")).Load(context.Background())
	if err != nil || len(got) != 0 {
		t.Errorf("Load() = (%v, %v), want empty registry", got, err)
	}
}

func TestFileStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	if err := os.WriteFile(path, []byte("id: [unterminated"), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	_, err := NewFileStore(path).Load(context.Background())
	if !errors.Is(err, ErrCorruptStore) {
		t.Errorf("Load() error = %v, want ErrCorruptStore", err)
	}
}

func TestFileStore_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "templates.yaml"))

	for i := 0; i < 3; i++ {
		if err := store.Save(context.Background(), []Record{{ID: i}}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("directory contains %v, want only the registry file", names)
	}
}

func TestFileStore_EmptyRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	store := NewFileStore(path)

	if err := store.Save(context.Background(), nil); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := store.Load(context.Background())
	if err != nil || len(got) != 0 {
		t.Errorf("Load() = (%v, %v), want empty", got, err)
	}
}
