package controller

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/fonsecaaso/tinylink/internal/filter"
	"github.com/fonsecaaso/tinylink/internal/model"
	"github.com/fonsecaaso/tinylink/internal/repository"
)

// ListState is the load state of the link collection
type ListState int

const (
	ListLoading ListState = iota
	ListLoaded
	ListLoadFailed
)

func (s ListState) String() string {
	switch s {
	case ListLoading:
		return "loading"
	case ListLoaded:
		return "loaded"
	case ListLoadFailed:
		return "load_failed"
	default:
		return "unknown"
	}
}

const (
	MsgLoadingLinks = "Loading links..."
	MsgNoLinks      = "No links yet."
	MsgNoMatches    = "No links match your search."
)

// ListView is a snapshot of the list controller for rendering. Links holds the
// filtered collection and is only populated once loaded; EmptyMessage is set when
// a loaded view has nothing to show.
type ListView struct {
	State        ListState
	Links        []model.Link
	Total        int
	Query        string
	LoadError    string
	DeleteError  string
	Deleting     string
	EmptyMessage string
}

// ListController owns the link collection, its load state and the filtered view
type ListController struct {
	repo   repository.LinkRepository
	logger *zap.Logger

	mu         sync.RWMutex
	state      ListState
	links      []model.Link
	filtered   []model.Link
	query      string
	loadErr    string
	deleteErr  string
	deleting   string
	generation uint64
}

// NewListController creates a controller in the Loading state; call Load to populate it
func NewListController(repo repository.LinkRepository) *ListController {
	return &ListController{
		repo:   repo,
		logger: zap.L().With(zap.String("component", "ListController")),
		state:  ListLoading,
	}
}

// Begin enters the Loading state and returns the ticket for the load to run
func (c *ListController) Begin() Ticket {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	c.state = ListLoading
	c.loadErr = ""
	c.deleteErr = ""
	return Ticket{generation: c.generation}
}

// Fetch lists the links for ticket t. A result for a superseded ticket is dropped.
func (c *ListController) Fetch(ctx context.Context, t Ticket) error {
	links, err := c.repo.ListLinks(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if t.generation != c.generation {
		recordStale("list")
		c.logger.Debug("Discarding superseded list response")
		return nil
	}

	if err != nil {
		c.logger.Warn("Failed to load links", zap.Error(err))
		c.state = ListLoadFailed
		c.loadErr = repository.Message(err)
		c.links = nil
		c.filtered = nil
		return err
	}

	c.state = ListLoaded
	c.links = links
	c.refilterLocked()
	c.logger.Debug("Links loaded", zap.Int("count", len(links)))
	return nil
}

// Load replaces the collection with a fresh copy from the API
func (c *ListController) Load(ctx context.Context) error {
	return c.Fetch(ctx, c.Begin())
}

// SetQuery changes the search query and recomputes the filtered view without fetching
func (c *ListController) SetQuery(query string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.query = query
	c.refilterLocked()
}

// Prepend inserts a newly created link at the front of the collection
func (c *ListController) Prepend(link model.Link) {
	c.mu.Lock()
	defer c.mu.Unlock()

	links := make([]model.Link, 0, len(c.links)+1)
	links = append(links, link)
	for _, l := range c.links {
		if l.Code != link.Code {
			links = append(links, l)
		}
	}
	c.links = links
	c.refilterLocked()
}

// HasCode reports whether code is already present in the loaded collection
func (c *ListController) HasCode(code string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, l := range c.links {
		if l.Code == code {
			return true
		}
	}
	return false
}

// Delete removes code through the API. On success the entry is dropped locally
// without a re-fetch; on failure the collection is untouched and the error is kept
// for display.
func (c *ListController) Delete(ctx context.Context, code string) error {
	c.mu.Lock()
	c.deleting = code
	c.deleteErr = ""
	c.mu.Unlock()

	err := c.repo.DeleteLink(ctx, code)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.deleting == code {
		c.deleting = ""
	}

	if err != nil {
		c.logger.Warn("Failed to delete link", zap.String("code", code), zap.Error(err))
		c.deleteErr = repository.Message(err)
		return err
	}

	links := make([]model.Link, 0, len(c.links))
	for _, l := range c.links {
		if l.Code != code {
			links = append(links, l)
		}
	}
	c.links = links
	c.refilterLocked()
	c.logger.Info("Link removed", zap.String("code", code))
	return nil
}

// ClearDeleteError dismisses the last delete failure
func (c *ListController) ClearDeleteError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleteErr = ""
}

// View returns a snapshot for rendering
func (c *ListController) View() ListView {
	c.mu.RLock()
	defer c.mu.RUnlock()

	view := ListView{
		State:       c.state,
		Query:       c.query,
		LoadError:   c.loadErr,
		DeleteError: c.deleteErr,
		Deleting:    c.deleting,
	}

	if c.state != ListLoaded {
		return view
	}

	view.Total = len(c.links)
	view.Links = append([]model.Link(nil), c.filtered...)
	switch {
	case len(c.links) == 0:
		view.EmptyMessage = MsgNoLinks
	case len(c.filtered) == 0:
		view.EmptyMessage = MsgNoMatches
	}
	return view
}

func (c *ListController) refilterLocked() {
	c.filtered = filter.Links(c.links, c.query)
}
