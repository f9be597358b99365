package credentials

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func testCredentials() *Credentials {
	return &Credentials{
		ClientID:        "client-id",
		ClientSecret:    "client-secret",
		AccessToken:     "access-token",
		RefreshToken:    "refresh-token",
		UserID:          "user-1",
		TokenExpiration: 1700000000,
	}
}

func TestFileStore_PutAndGet(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "credentials.json")
	store := NewFileStore(path)

	want := testCredentials()
	if err := store.Put(ctx, want); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := store.Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if *got != *want {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}
}

func TestFileStore_GetNonExistent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nonexistent", "credentials.json")
	store := NewFileStore(path)

	_, err := store.Get(context.Background())
	if !errors.Is(err, ErrSecretUnavailable) {
		t.Errorf("Get() error = %v, want ErrSecretUnavailable", err)
	}
}

func TestFileStore_GetInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	if err := os.WriteFile(path, []byte("not json"), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := NewFileStore(path).Get(context.Background())
	if !errors.Is(err, ErrSecretUnavailable) {
		t.Errorf("Get() error = %v, want ErrSecretUnavailable", err)
	}
}

func TestFileStore_PutCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeply", "credentials.json")
	store := NewFileStore(path)

	if err := store.Put(context.Background(), testCredentials()); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("Put() did not create credentials file")
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("Put() left temporary file behind")
	}
}

func TestFileStore_PutNil(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "credentials.json"))

	err := store.Put(context.Background(), nil)
	if !errors.Is(err, ErrSecretWriteFailed) {
		t.Errorf("Put(nil) error = %v, want ErrSecretWriteFailed", err)
	}
}

func TestFileStore_PutOverwrites(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "credentials.json"))

	first := testCredentials()
	if err := store.Put(ctx, first); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	second := testCredentials()
	second.Rotate("rotated", 1800000000)
	if err := store.Put(ctx, second); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := store.Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.AccessToken != "rotated" || got.TokenExpiration != 1800000000 {
		t.Errorf("Get() = %+v, want rotated token", got)
	}
}

func TestFileStore_FilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")

	if err := NewFileStore(path).Put(context.Background(), testCredentials()); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}

	// Check file is not world-readable (0600)
	if mode := info.Mode().Perm(); mode&0077 != 0 {
		t.Errorf("File permissions = %o, want 0600 (no group/other access)", mode)
	}
}

func TestFileStore_Path(t *testing.T) {
	path := "/custom/path/credentials.json"
	if got := NewFileStore(path).Path(); got != path {
		t.Errorf("Path() = %q, want %q", got, path)
	}
}
