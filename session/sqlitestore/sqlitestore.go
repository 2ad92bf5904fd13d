// Package sqlitestore persists the session record in a local SQLite
// database, for hosts that already carry one. The record occupies a single
// fixed row; every save replaces it whole.
package sqlitestore

import (
	"database/sql"
	"encoding/json"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/aiacademy/academy-client/identity"
	clienterrors "github.com/aiacademy/academy-client/internal/errors"
	"github.com/aiacademy/academy-client/session"
)

const schema = `
CREATE TABLE IF NOT EXISTS client_session (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	user_json TEXT NOT NULL,
	token TEXT NOT NULL,
	token_expiry INTEGER NOT NULL
)`

var _ session.Repo = (*Store)(nil)

// Store is a SQLite-backed session.Repo.
type Store struct {
	db     *sql.DB
	ownsDB bool
}

// Open creates a Store over a database file, creating the schema if needed.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "[sqlitestore.Open] sql.Open")
	}
	store, err := NewWithDB(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	store.ownsDB = true
	return store, nil
}

// NewWithDB creates a Store over an existing database handle. The caller
// keeps ownership of the handle.
func NewWithDB(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, errors.Wrap(err, "[sqlitestore.NewWithDB] create schema")
	}
	return &Store{db: db}, nil
}

// Close closes the database when this Store opened it.
func (s *Store) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

// Save writes the record, fully replacing any previous one.
func (s *Store) Save(record *session.Record) error {
	userJSON, err := json.Marshal(record.User)
	if err != nil {
		return errors.Wrap(err, "[sqlitestore.Save] Marshal")
	}

	_, err = s.db.Exec(`
		INSERT INTO client_session (id, user_json, token, token_expiry)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_json = excluded.user_json,
			token = excluded.token,
			token_expiry = excluded.token_expiry`,
		string(userJSON), record.Token, record.TokenExpiry)
	if err != nil {
		return errors.Wrap(err, "[sqlitestore.Save] Exec")
	}
	return nil
}

// Load reads the persisted record, (nil, nil) when the row is absent.
func (s *Store) Load() (*session.Record, error) {
	var userJSON, tok string
	var expiry int64

	err := s.db.QueryRow(
		`SELECT user_json, token, token_expiry FROM client_session WHERE id = 1`,
	).Scan(&userJSON, &tok, &expiry)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "[sqlitestore.Load] QueryRow")
	}

	var user identity.Identity
	if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
		return nil, errors.Wrap(clienterrors.ErrMalformedSession, err.Error())
	}

	return &session.Record{
		User:        user,
		Token:       tok,
		TokenExpiry: expiry,
	}, nil
}

// Clear removes the persisted record. An absent row is not an error.
func (s *Store) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM client_session WHERE id = 1`); err != nil {
		return errors.Wrap(err, "[sqlitestore.Clear] Exec")
	}
	return nil
}
