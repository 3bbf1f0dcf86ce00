package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/codefionn/chatschnell/internal/logger"
	"github.com/codefionn/chatschnell/internal/orchestrator"
)

// Storage format version for forward compatibility.
const storageVersion = 1

// storedSession is the on-disk envelope. Turns are stored as-is; the Turn
// type already carries JSON tags.
type storedSession struct {
	Version   int                  `json:"version"`
	ID        string               `json:"id"`
	Title     string               `json:"title,omitempty"`
	Turns     []*orchestrator.Turn `json:"turns"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// Metadata is the lightweight listing record.
type Metadata struct {
	ID        string    `json:"id"`
	Title     string    `json:"title,omitempty"`
	TurnCount int       `json:"turn_count"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Storage reads and writes sessions as JSON files in a directory, one file
// per session.
type Storage struct {
	dir string
}

// NewStorage creates a Storage rooted in the user config directory.
func NewStorage() (*Storage, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return NewStorageAt(filepath.Join(base, "chatschnell", "sessions"))
}

// NewStorageAt creates a Storage rooted at dir, creating it if needed.
func NewStorageAt(dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	return &Storage{dir: dir}, nil
}

var unsafeIDChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// sanitizeID keeps session IDs usable as file names.
func sanitizeID(id string) string {
	id = unsafeIDChars.ReplaceAllString(strings.TrimSpace(id), "-")
	if id == "" || id == "." || id == ".." {
		return "session"
	}
	return id
}

func (s *Storage) path(id string) string {
	return filepath.Join(s.dir, sanitizeID(id)+".json")
}

// Save writes the session atomically (temp file then rename) and clears its
// dirty flag.
func (s *Storage) Save(sess *Session) error {
	sess.mu.RLock()
	stored := &storedSession{
		Version:   storageVersion,
		ID:        sess.ID,
		Title:     sess.Title,
		Turns:     sess.Turns,
		CreatedAt: sess.CreatedAt,
		UpdatedAt: sess.UpdatedAt,
	}
	data, err := json.MarshalIndent(stored, "", "  ")
	sess.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", sess.ID, err)
	}

	target := s.path(sess.ID)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write session %s: %w", sess.ID, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("failed to finalize session %s: %w", sess.ID, err)
	}

	sess.markSaved()
	logger.Debug("session %s saved (%d turns)", sess.ID, len(stored.Turns))
	return nil
}

// Load reads a session by ID. A missing file is an error; callers that want
// load-or-create use LoadOrCreate.
func (s *Storage) Load(id string) (*Session, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		return nil, fmt.Errorf("failed to read session %s: %w", id, err)
	}

	var stored storedSession
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to parse session %s: %w", id, err)
	}
	if stored.Version > storageVersion {
		return nil, fmt.Errorf("session %s has unsupported version %d", id, stored.Version)
	}

	return &Session{
		ID:        stored.ID,
		Title:     stored.Title,
		Turns:     stored.Turns,
		CreatedAt: stored.CreatedAt,
		UpdatedAt: stored.UpdatedAt,
	}, nil
}

// LoadOrCreate returns the stored session for id, or a fresh one when none
// exists yet.
func (s *Storage) LoadOrCreate(id string) (*Session, error) {
	sess, err := s.Load(id)
	if err == nil {
		return sess, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return NewSession(id), nil
	}
	return nil, err
}

// List returns metadata for every stored session, most recent first.
func (s *Storage) List() ([]*Metadata, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	var out []*Metadata
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		sess, err := s.Load(id)
		if err != nil {
			logger.Warn("skipping unreadable session %s: %v", id, err)
			continue
		}
		out = append(out, &Metadata{
			ID:        sess.ID,
			Title:     sess.Title,
			TurnCount: len(sess.Turns),
			UpdatedAt: sess.UpdatedAt,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// Delete removes a stored session.
func (s *Storage) Delete(id string) error {
	if err := os.Remove(s.path(id)); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}
