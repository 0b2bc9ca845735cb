// Package credstore manages the redundant storage of the bearer token.
//
// Several storage locations hold copies of the same logical credential.
// Writes fan out to every backend, reads probe backends in priority order
// until one yields a non-empty token, and Clear removes the token from every
// backend including key names used by earlier client versions. The package
// performs no network I/O.
package credstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"coursectl/internal/repositories"
)

// TokenKey is the canonical credential key name.
const TokenKey = "token"

// legacyDBKeys are row names written by earlier client versions.
var legacyDBKeys = []string{"auth_token", "authToken"}

// legacyFileNames are token file names written by earlier client versions.
var legacyFileNames = []string{"auth.json", "token.json"}

// Backend is a single storage location for the credential.
type Backend interface {
	Name() string
	Read() (string, error)
	Write(token string) error
	// Clear removes the credential, including any legacy key names this
	// backend is responsible for.
	Clear() error
}

// Store fans writes out to every backend and reads in priority order.
type Store struct {
	backends []Backend
	logger   *log.Logger
}

// NewStore creates a Store over the given backends; earlier backends take
// read priority over later ones.
func NewStore(logger *log.Logger, backends ...Backend) *Store {
	return &Store{backends: backends, logger: logger}
}

// Write stores the token in every backend. A failing backend is logged and
// skipped; Write only fails when no backend accepted the token.
func (s *Store) Write(token string) error {
	written := 0
	for _, b := range s.backends {
		if err := b.Write(token); err != nil {
			s.logger.Warn("credential write failed", "backend", b.Name(), "err", err)
			continue
		}
		written++
	}
	if written == 0 {
		return fmt.Errorf("no credential backend accepted the token")
	}
	return nil
}

// Read probes backends in priority order and returns the first non-empty
// token, or an empty string when every location is empty.
func (s *Store) Read() string {
	for _, b := range s.backends {
		token, err := b.Read()
		if err != nil {
			s.logger.Warn("credential read failed", "backend", b.Name(), "err", err)
			continue
		}
		if token != "" {
			return token
		}
	}
	return ""
}

// Clear removes the token from every backend, legacy key names included.
// Individual failures are logged; from the caller's perspective the clear
// always succeeds.
func (s *Store) Clear() {
	for _, b := range s.backends {
		if err := b.Clear(); err != nil {
			s.logger.Warn("credential clear failed", "backend", b.Name(), "err", err)
		}
	}
}

// DBBackend stores the credential in the local SQLite database.
type DBBackend struct {
	repo *repositories.CredentialRepository
}

// NewDBBackend creates a database-backed credential location.
func NewDBBackend(repo *repositories.CredentialRepository) *DBBackend {
	return &DBBackend{repo: repo}
}

func (b *DBBackend) Name() string { return "database" }

func (b *DBBackend) Read() (string, error) {
	return b.repo.Get(TokenKey)
}

func (b *DBBackend) Write(token string) error {
	return b.repo.Put(TokenKey, token)
}

func (b *DBBackend) Clear() error {
	names := append([]string{TokenKey}, legacyDBKeys...)
	return b.repo.DeleteAll(names...)
}

// FileBackend stores the credential as a file under a directory, typically
// ~/.coursectl.
type FileBackend struct {
	dir string
}

// NewFileBackend creates a file-backed credential location rooted at dir.
func NewFileBackend(dir string) *FileBackend {
	return &FileBackend{dir: dir}
}

func (b *FileBackend) Name() string { return "file" }

func (b *FileBackend) path() string { return filepath.Join(b.dir, TokenKey) }

func (b *FileBackend) Read() (string, error) {
	data, err := os.ReadFile(b.path())
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (b *FileBackend) Write(token string) error {
	if err := os.MkdirAll(b.dir, 0755); err != nil {
		return fmt.Errorf("failed to create credential directory: %w", err)
	}
	if err := os.WriteFile(b.path(), []byte(token), 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

func (b *FileBackend) Clear() error {
	var firstErr error
	for _, name := range append([]string{TokenKey}, legacyFileNames...) {
		err := os.Remove(filepath.Join(b.dir, name))
		if err != nil && !errors.Is(err, os.ErrNotExist) && firstErr == nil {
			firstErr = fmt.Errorf("failed to remove %s: %w", name, err)
		}
	}
	return firstErr
}
