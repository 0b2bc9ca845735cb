package credstore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"coursectl/internal/repositories"
	"coursectl/internal/shared"
)

// fakeBackend is an in-memory Backend with scriptable failures.
type fakeBackend struct {
	name     string
	token    string
	readErr  error
	writeErr error
	clearErr error
	cleared  bool
}

func (b *fakeBackend) Name() string { return b.name }

func (b *fakeBackend) Read() (string, error) {
	if b.readErr != nil {
		return "", b.readErr
	}
	return b.token, nil
}

func (b *fakeBackend) Write(token string) error {
	if b.writeErr != nil {
		return b.writeErr
	}
	b.token = token
	return nil
}

func (b *fakeBackend) Clear() error {
	b.cleared = true
	if b.clearErr != nil {
		return b.clearErr
	}
	b.token = ""
	return nil
}

func TestStore(t *testing.T) {
	logger := shared.NewLogger(nil)

	t.Run("Write", func(t *testing.T) {
		t.Run("fans out to every backend", func(t *testing.T) {
			a := &fakeBackend{name: "a"}
			b := &fakeBackend{name: "b"}
			store := NewStore(logger, a, b)

			if err := store.Write("tok"); err != nil {
				t.Fatalf("Write failed: %v", err)
			}
			if a.token != "tok" || b.token != "tok" {
				t.Errorf("expected token in all backends, got %q and %q", a.token, b.token)
			}
		})

		t.Run("succeeds when at least one backend accepts", func(t *testing.T) {
			a := &fakeBackend{name: "a", writeErr: errors.New("disk full")}
			b := &fakeBackend{name: "b"}
			store := NewStore(logger, a, b)

			if err := store.Write("tok"); err != nil {
				t.Fatalf("Write failed: %v", err)
			}
			if b.token != "tok" {
				t.Errorf("expected token in surviving backend, got %q", b.token)
			}
		})

		t.Run("fails only when every backend rejects", func(t *testing.T) {
			a := &fakeBackend{name: "a", writeErr: errors.New("nope")}
			b := &fakeBackend{name: "b", writeErr: errors.New("nope")}
			store := NewStore(logger, a, b)

			if err := store.Write("tok"); err == nil {
				t.Error("expected error when no backend accepts")
			}
		})
	})

	t.Run("Read", func(t *testing.T) {
		t.Run("returns the first non-empty token by priority", func(t *testing.T) {
			a := &fakeBackend{name: "a", token: "primary"}
			b := &fakeBackend{name: "b", token: "secondary"}
			store := NewStore(logger, a, b)

			if got := store.Read(); got != "primary" {
				t.Errorf("Read = %q, want primary", got)
			}
		})

		t.Run("skips empty and failing backends", func(t *testing.T) {
			a := &fakeBackend{name: "a"}
			b := &fakeBackend{name: "b", readErr: errors.New("corrupt")}
			c := &fakeBackend{name: "c", token: "fallback"}
			store := NewStore(logger, a, b, c)

			if got := store.Read(); got != "fallback" {
				t.Errorf("Read = %q, want fallback", got)
			}
		})

		t.Run("returns empty when every location is empty", func(t *testing.T) {
			store := NewStore(logger, &fakeBackend{name: "a"}, &fakeBackend{name: "b"})
			if got := store.Read(); got != "" {
				t.Errorf("Read = %q, want empty", got)
			}
		})
	})

	t.Run("Clear", func(t *testing.T) {
		t.Run("clears every backend", func(t *testing.T) {
			a := &fakeBackend{name: "a", token: "tok"}
			b := &fakeBackend{name: "b", token: "tok"}
			store := NewStore(logger, a, b)

			store.Clear()

			if a.token != "" || b.token != "" {
				t.Errorf("expected all backends cleared, got %q and %q", a.token, b.token)
			}
		})

		t.Run("keeps going past a failing backend", func(t *testing.T) {
			a := &fakeBackend{name: "a", clearErr: errors.New("locked")}
			b := &fakeBackend{name: "b", token: "tok"}
			store := NewStore(logger, a, b)

			store.Clear()

			if !a.cleared || !b.cleared {
				t.Error("expected clear attempted on every backend")
			}
			if b.token != "" {
				t.Errorf("expected surviving backend cleared, got %q", b.token)
			}
		})
	})
}

func TestFileBackend(t *testing.T) {
	t.Run("write and read roundtrip", func(t *testing.T) {
		backend := NewFileBackend(t.TempDir())

		if err := backend.Write("abc123"); err != nil {
			t.Fatalf("Write failed: %v", err)
		}

		token, err := backend.Read()
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if token != "abc123" {
			t.Errorf("Read = %q, want abc123", token)
		}
	})

	t.Run("read of missing file returns empty", func(t *testing.T) {
		backend := NewFileBackend(t.TempDir())

		token, err := backend.Read()
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if token != "" {
			t.Errorf("Read = %q, want empty", token)
		}
	})

	t.Run("read trims whitespace", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, TokenKey), []byte("  abc\n"), 0600); err != nil {
			t.Fatal(err)
		}

		token, err := NewFileBackend(dir).Read()
		if err != nil {
			t.Fatal(err)
		}
		if token != "abc" {
			t.Errorf("Read = %q, want abc", token)
		}
	})

	t.Run("clear removes current and legacy files", func(t *testing.T) {
		dir := t.TempDir()
		for _, name := range []string{TokenKey, "auth.json", "token.json"} {
			if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0600); err != nil {
				t.Fatal(err)
			}
		}

		if err := NewFileBackend(dir).Clear(); err != nil {
			t.Fatalf("Clear failed: %v", err)
		}

		for _, name := range []string{TokenKey, "auth.json", "token.json"} {
			if _, err := os.Stat(filepath.Join(dir, name)); !errors.Is(err, os.ErrNotExist) {
				t.Errorf("expected %s removed", name)
			}
		}
	})

	t.Run("clear with nothing stored succeeds", func(t *testing.T) {
		if err := NewFileBackend(t.TempDir()).Clear(); err != nil {
			t.Errorf("Clear failed: %v", err)
		}
	})
}

func TestDBBackend(t *testing.T) {
	newRepo := func(t *testing.T) *repositories.CredentialRepository {
		t.Helper()
		db, err := shared.NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		t.Cleanup(func() { db.Close() })
		if err := shared.RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
		return repositories.NewCredentialRepository(db)
	}

	t.Run("write and read roundtrip", func(t *testing.T) {
		backend := NewDBBackend(newRepo(t))

		if err := backend.Write("abc"); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		token, err := backend.Read()
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if token != "abc" {
			t.Errorf("Read = %q, want abc", token)
		}
	})

	t.Run("clear removes current and legacy rows", func(t *testing.T) {
		repo := newRepo(t)
		backend := NewDBBackend(repo)

		for _, name := range []string{TokenKey, "auth_token", "authToken"} {
			if err := repo.Put(name, "v"); err != nil {
				t.Fatal(err)
			}
		}

		if err := backend.Clear(); err != nil {
			t.Fatalf("Clear failed: %v", err)
		}

		for _, name := range []string{TokenKey, "auth_token", "authToken"} {
			if token, _ := repo.Get(name); token != "" {
				t.Errorf("expected %q cleared, got %q", name, token)
			}
		}
	})
}
