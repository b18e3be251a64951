package fs

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"detgeom/internal/blob/core"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestPutWritesDataAndSidecar(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	info, err := s.Put(ctx, "runs/a/bundle.json", strings.NewReader(`{"shapes":[]}`),
		core.PutOptions{ContentType: "application/json", Metadata: map[string]string{"run": "a"}})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if info.Size != 13 || info.ETag == "" {
		t.Errorf("info = %+v", info)
	}

	if _, err := os.Stat(filepath.Join(s.root, "runs/a/bundle.json")); err != nil {
		t.Errorf("data file missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.root, "runs/a/bundle.json.meta")); err != nil {
		t.Errorf("sidecar missing: %v", err)
	}

	got, rc, err := s.Get(ctx, "runs/a/bundle.json")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != `{"shapes":[]}` {
		t.Errorf("content = %q", data)
	}
	if got.ETag != info.ETag || got.ContentType != "application/json" || got.Metadata["run"] != "a" {
		t.Errorf("round-tripped info = %+v", got)
	}
}

func TestPutIsCreateOnly(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	if _, err := s.Put(ctx, "k", strings.NewReader("1"), core.PutOptions{}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Put(ctx, "k", strings.NewReader("2"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Errorf("second Put err = %v, want ErrExists", err)
	}
}

func TestKeySanitization(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	for _, key := range []string{"", "   ", "/abs", "../escape", "a/../../b"} {
		if _, err := s.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err == nil {
			t.Errorf("key %q accepted", key)
		}
	}
}

func TestHeadAndGetMissing(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	if _, err := s.Head(ctx, "absent"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Head err = %v, want ErrNotFound", err)
	}
	if _, _, err := s.Get(ctx, "absent"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Get err = %v, want ErrNotFound", err)
	}
}

func TestListWalksPrefix(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	for _, k := range []string{"runs/b/bundle.json", "runs/a/bundle.json", "misc/note"} {
		if _, err := s.Put(ctx, k, strings.NewReader("x"), core.PutOptions{}); err != nil {
			t.Fatal(err)
		}
	}
	infos, err := s.List(ctx, "runs/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 2 || infos[0].Key != "runs/a/bundle.json" || infos[1].Key != "runs/b/bundle.json" {
		t.Errorf("list = %+v", infos)
	}
}

func TestDeleteRemovesSidecar(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	if _, err := s.Put(ctx, "k", strings.NewReader("x"), core.PutOptions{}); err != nil {
		t.Fatal(err)
	}
	ok, err := s.Delete(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Delete = %v, %v", ok, err)
	}
	if _, err := os.Stat(filepath.Join(s.root, "k.meta")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("sidecar still present: %v", err)
	}
	if ok, _ := s.Delete(ctx, "k"); ok {
		t.Error("second Delete reported existence")
	}
}
