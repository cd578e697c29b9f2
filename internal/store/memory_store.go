// Package store keeps the dev backend's links in memory.
package store

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/fonsecaaso/tinylink/internal/model"
)

var (
	ErrNotFound          = errors.New("link not found")
	ErrCodeExists        = errors.New("code already exists")
	ErrCodeGenerationMax = errors.New("failed to generate unique code after max attempts")
)

const (
	maxCodeGenerationAttempts = 10
	generatedCodeLength       = 6
	codeChars                 = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	clickRetention            = 7 * 24 * time.Hour
)

type entry struct {
	link   model.Link
	clicks []time.Time
}

// MemoryStore is a concurrency-safe link store. Listing returns the newest link first.
type MemoryStore struct {
	mu    sync.RWMutex
	links map[string]*entry
	order []string
	now   func() time.Time
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		links: make(map[string]*entry),
		now:   time.Now,
	}
}

// List returns every link, newest first
func (s *MemoryStore) List() []model.Link {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	links := make([]model.Link, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		links = append(links, s.links[s.order[i]].snapshot(now))
	}
	return links
}

// Create stores a new link. An empty code is replaced by a generated one.
func (s *MemoryStore) Create(longURL, code string) (model.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if code == "" {
		generated, err := s.generateCodeLocked()
		if err != nil {
			return model.Link{}, err
		}
		code = generated
	} else if _, exists := s.links[code]; exists {
		return model.Link{}, ErrCodeExists
	}

	now := s.now()
	e := &entry{link: model.Link{Code: code, LongURL: longURL, CreatedAt: &now}}
	s.links[code] = e
	s.order = append(s.order, code)
	return e.snapshot(now), nil
}

// Get returns the link for code
func (s *MemoryStore) Get(code string) (model.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.links[code]
	if !ok {
		return model.Link{}, ErrNotFound
	}
	return e.snapshot(s.now()), nil
}

// Delete removes the link for code
func (s *MemoryStore) Delete(code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.links[code]; !ok {
		return ErrNotFound
	}
	delete(s.links, code)
	for i, c := range s.order {
		if c == code {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// RecordClick counts a visit to code and returns the updated link
func (s *MemoryStore) RecordClick(code string) (model.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.links[code]
	if !ok {
		return model.Link{}, ErrNotFound
	}

	now := s.now()
	e.link.Clicks++
	e.link.LastClicked = &now
	e.clicks = append(pruneClicks(e.clicks, now), now)
	return e.snapshot(now), nil
}

func (s *MemoryStore) generateCodeLocked() (string, error) {
	for attempt := 0; attempt < maxCodeGenerationAttempts; attempt++ {
		code, err := createCode()
		if err != nil {
			return "", err
		}
		if _, exists := s.links[code]; !exists {
			return code, nil
		}
	}
	return "", ErrCodeGenerationMax
}

func createCode() (string, error) {
	code := make([]byte, generatedCodeLength)
	for i := range code {
		randomIndex, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeChars))))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number: %w", err)
		}
		code[i] = codeChars[randomIndex.Int64()]
	}
	return string(code), nil
}

// snapshot copies the link and fills in the windowed click counts
func (e *entry) snapshot(now time.Time) model.Link {
	link := e.link

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekStart := now.Add(-clickRetention)
	var today, week int64
	for _, clicked := range e.clicks {
		if !clicked.Before(weekStart) {
			week++
		}
		if !clicked.Before(midnight) {
			today++
		}
	}
	link.TodayClicks = &today
	link.WeekClicks = &week
	return link
}

func pruneClicks(clicks []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-clickRetention)
	i := 0
	for i < len(clicks) && clicks[i].Before(cutoff) {
		i++
	}
	return clicks[i:]
}
