package api

import (
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestSessionStore_SaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := newSessionStore(path)

	in := []*http.Cookie{
		{Name: "access_token", Value: "opaque-session-value", Path: "/"},
	}
	if err := store.Save(in); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	out, err := store.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if len(out) != 1 {
		t.Fatalf("len(cookies) = %d, want 1", len(out))
	}
	if out[0].Name != "access_token" || out[0].Value != "opaque-session-value" {
		t.Errorf("cookie = %+v, want name/value round trip", out[0])
	}
}

func TestSessionStore_LoadMissingFile_ReturnsEmpty(t *testing.T) {
	store := newSessionStore(filepath.Join(t.TempDir(), "absent.json"))

	cookies, err := store.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(cookies) != 0 {
		t.Errorf("len(cookies) = %d, want 0", len(cookies))
	}
}

func TestSessionStore_SaveCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "session.json")
	store := newSessionStore(path)

	if err := store.Save(nil); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("session file should exist: %v", err)
	}
}

func TestSessionStore_FileIsOwnerOnly(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file permissions are not meaningful on windows")
	}

	path := filepath.Join(t.TempDir(), "session.json")
	store := newSessionStore(path)
	if err := store.Save([]*http.Cookie{{Name: "a", Value: "b"}}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat returned error: %v", err)
	}
	// セッション値を含むため所有者以外は読めないこと
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("file mode = %o, want 600", perm)
	}
}

func TestSessionStore_ClearRemovesFileAndIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := newSessionStore(path)

	if err := store.Save([]*http.Cookie{{Name: "a", Value: "b"}}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear returned error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("session file should be removed")
	}

	// 2回目のClearもエラーにならないこと
	if err := store.Clear(); err != nil {
		t.Errorf("second Clear returned error: %v", err)
	}
}
