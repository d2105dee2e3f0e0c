package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/i474232898/home-temperature-agent/internal/common"
)

// localFact is one stored entry in the local backend.
type localFact struct {
	Text     string    `json:"text"`
	StoredAt time.Time `json:"stored_at"`
}

// LocalStore is the fallback backend: a JSON file with case-insensitive
// substring search. Good enough for a household's worth of facts.
type LocalStore struct {
	mu    sync.Mutex
	path  string
	facts []localFact
}

// NewLocalStore loads (or initializes) the local facts file.
func NewLocalStore(path string) (*LocalStore, error) {
	s := &LocalStore{path: path}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := json.Unmarshal(data, &s.facts); err != nil {
				return nil, fmt.Errorf("parse facts file %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// First run.
		default:
			return nil, fmt.Errorf("read facts file %s: %w", path, err)
		}
	}

	return s, nil
}

// StoreFact appends a fact and persists the file.
func (s *LocalStore) StoreFact(_ context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("empty fact")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.facts = append(s.facts, localFact{Text: text, StoredAt: time.Now().UTC()})
	return s.persistLocked()
}

// SearchFacts matches facts whose text contains any word of the query,
// case-insensitive, newest first.
func (s *LocalStore) SearchFacts(_ context.Context, query string) ([]string, error) {
	words := strings.Fields(strings.ToLower(query))

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []string
	for i := len(s.facts) - 1; i >= 0; i-- {
		text := s.facts[i].Text
		if len(words) == 0 || common.HasAny(strings.ToLower(text), words...) {
			out = append(out, text)
		}
	}
	return out, nil
}

func (s *LocalStore) persistLocked() error {
	if s.path == "" {
		return nil
	}

	data, err := json.MarshalIndent(s.facts, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
