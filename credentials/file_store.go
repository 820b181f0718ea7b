package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jrsteele09/mfi-console/identity"
	"github.com/jrsteele09/mfi-console/internal/fsutil"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var _ Store = (*FileStore)(nil)

// document is the on-disk layout. Both halves live in one file so a single
// rename publishes them together.
type document struct {
	Token    string             `json:"token"`
	Identity *identity.Identity `json:"user"`
	SavedAt  time.Time          `json:"saved_at"`
}

// FileStore implements Store using a JSON file readable only by the user.
type FileStore struct {
	path   string
	mu     sync.Mutex
	logger zerolog.Logger
}

// NewFileStore creates the parent directory (0700) and returns a store
// backed by path. The file itself is created on the first Set.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("credentials: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create credentials directory: %w", err)
	}
	return &FileStore{
		path:   path,
		logger: log.With().Str("component", "credentials").Logger(),
	}, nil
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Token() (string, bool) {
	doc, ok := s.load()
	if !ok {
		return "", false
	}
	return doc.Token, true
}

func (s *FileStore) Snapshot() (identity.Identity, bool) {
	doc, ok := s.load()
	if !ok {
		return identity.Identity{}, false
	}
	return doc.Identity.Clone(), true
}

func (s *FileStore) Set(token string, id identity.Identity) error {
	if token == "" {
		return fmt.Errorf("credentials: empty token")
	}
	data, err := json.MarshalIndent(document{
		Token:    token,
		Identity: &id,
		SavedAt:  time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := fsutil.AtomicWriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	return nil
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	return nil
}

// load never fails: an unreadable or half-written document reads as absent.
func (s *FileStore) load() (document, bool) {
	s.mu.Lock()
	data, err := os.ReadFile(s.path)
	s.mu.Unlock()

	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn().Err(err).Str("path", s.path).Msg("credentials unreadable, treating as absent")
		}
		return document{}, false
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("credentials corrupt, treating as absent")
		return document{}, false
	}
	if doc.Token == "" || doc.Identity == nil {
		return document{}, false
	}
	return doc, true
}
