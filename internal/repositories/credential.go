package repositories

import (
	"database/sql"
	"fmt"
	"time"
)

// CredentialRepository stores bearer tokens in the credentials table, keyed
// by name. It backs the database location of the credential store.
type CredentialRepository struct {
	db *sql.DB
}

// NewCredentialRepository creates a new [CredentialRepository] with the given database connection
func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Put inserts or replaces the token stored under name.
func (r *CredentialRepository) Put(name, token string) error {
	query := `
		INSERT INTO credentials (name, token, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET token = excluded.token, updated_at = excluded.updated_at
	`
	if _, err := r.db.Exec(query, name, token, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to store credential %q: %w", name, err)
	}
	return nil
}

// Get returns the token stored under name, or an empty string if absent.
func (r *CredentialRepository) Get(name string) (string, error) {
	var token string
	err := r.db.QueryRow("SELECT token FROM credentials WHERE name = ?", name).Scan(&token)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query credential %q: %w", name, err)
	}
	return token, nil
}

// Delete removes the token stored under name. Missing rows are not an error.
func (r *CredentialRepository) Delete(name string) error {
	if _, err := r.db.Exec("DELETE FROM credentials WHERE name = ?", name); err != nil {
		return fmt.Errorf("failed to delete credential %q: %w", name, err)
	}
	return nil
}

// DeleteAll removes every named token in a single statement. Used to clear
// current and legacy key names together.
func (r *CredentialRepository) DeleteAll(names ...string) error {
	if len(names) == 0 {
		return nil
	}
	placeholders := ""
	args := make([]any, len(names))
	for i, n := range names {
		if i > 0 {
			placeholders += ", "
		}
		placeholders += "?"
		args[i] = n
	}
	query := fmt.Sprintf("DELETE FROM credentials WHERE name IN (%s)", placeholders)
	if _, err := r.db.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	return nil
}
