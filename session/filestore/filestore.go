// Package filestore persists the session record as a JSON file, the desktop
// equivalent of the browser's fixed local-storage key. An optional watcher
// mirrors cross-tab storage events: a second process replacing the file
// triggers a change notification so the host can re-run Restore.
package filestore

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	clienterrors "github.com/aiacademy/academy-client/internal/errors"
	"github.com/aiacademy/academy-client/session"
)

// FileName is the fixed storage key. The session always lives in exactly one
// file of this name under the data folder.
const FileName = "aiacademy_session.json"

var _ session.Repo = (*Store)(nil)

// Store is a file-backed session.Repo. Writes are atomic: the record is
// written to a temp file and renamed over the target.
type Store struct {
	path string

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// New creates a Store rooted at the given data folder, creating the folder
// if needed.
func New(dataFolder string) (*Store, error) {
	if err := os.MkdirAll(dataFolder, 0o700); err != nil {
		return nil, errors.Wrap(err, "[filestore.New] MkdirAll")
	}
	return &Store{path: filepath.Join(dataFolder, FileName)}, nil
}

// Save writes the record, fully replacing any previous one.
func (s *Store) Save(record *session.Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "[filestore.Save] Marshal")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.Wrap(err, "[filestore.Save] WriteFile")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, "[filestore.Save] Rename")
	}
	return nil
}

// Load reads the persisted record. A missing file means no session; an
// undecodable file is reported as a malformed session for the caller to
// discard.
func (s *Store) Load() (*session.Record, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "[filestore.Load] ReadFile")
	}

	var record session.Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, errors.Wrap(clienterrors.ErrMalformedSession, err.Error())
	}
	return &record, nil
}

// Clear removes the persisted record. A missing file is not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "[filestore.Clear] Remove")
	}
	return nil
}

// Watch starts notifying onChange whenever another process writes or removes
// the session file. Events caused by this Store's own Save/Clear are
// delivered too; hosts re-running Restore on them is harmless since Restore
// re-validates whatever it finds. Close stops the watcher.
func (s *Store) Watch(onChange func()) error {
	if s.watcher != nil {
		return errors.New("[filestore.Watch] already watching")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "[filestore.Watch] NewWatcher")
	}

	// Watch the containing directory: the file itself disappears on Clear
	// and on every atomic rename.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		_ = watcher.Close()
		return errors.Wrap(err, "[filestore.Watch] Add")
	}

	s.watcher = watcher
	s.done = make(chan struct{})

	go s.processEvents(onChange)
	return nil
}

// Close stops the watcher, if one is running. Safe to call more than once.
func (s *Store) Close() error {
	if s.watcher == nil {
		return nil
	}
	err := s.watcher.Close()
	<-s.done
	s.watcher = nil
	return err
}

func (s *Store) processEvents(onChange func()) {
	defer close(s.done)

	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Name != s.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				onChange()
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("session file watcher error")
		}
	}
}
