package blob

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func TestOpenMemoryDriver(t *testing.T) {
	t.Setenv("DETGEOM_BLOB_DRIVER", "memory")
	s, err := Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.Driver() != DriverMemory {
		t.Errorf("driver = %q", s.Driver())
	}
}

func TestOpenDefaultsToFilesystem(t *testing.T) {
	t.Setenv("DETGEOM_BLOB_DRIVER", "")
	t.Setenv("DETGEOM_BLOB_FS_ROOT", filepath.Join(t.TempDir(), "artifacts"))
	s, err := Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.Driver() != DriverFilesystem {
		t.Errorf("driver = %q", s.Driver())
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	t.Setenv("DETGEOM_BLOB_DRIVER", "carrier-pigeon")
	if _, err := Open(context.Background()); err == nil {
		t.Error("unknown driver accepted")
	}
}

func TestOpenS3RequiresBucket(t *testing.T) {
	t.Setenv("DETGEOM_BLOB_DRIVER", "s3")
	t.Setenv("DETGEOM_BLOB_S3_BUCKET", "")
	_, err := Open(context.Background())
	if err == nil || !strings.Contains(err.Error(), "DETGEOM_BLOB_S3_BUCKET") {
		t.Errorf("err = %v, want bucket requirement", err)
	}
}

func TestStoreRoundTripThroughFacade(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	if _, err := s.Put(ctx, "k", strings.NewReader("v"), PutOptions{}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := s.Put(ctx, "k", strings.NewReader("v"), PutOptions{}); err == nil {
		t.Error("facade lost the create-only contract")
	}
}
