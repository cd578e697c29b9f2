package controller

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/fonsecaaso/tinylink/internal/model"
	"github.com/fonsecaaso/tinylink/internal/repository"
)

// StatsPhase is the state of the per-link stats view
type StatsPhase int

const (
	StatsIdle StatsPhase = iota
	StatsLoading
	StatsNotFound
	StatsError
	StatsFound
)

func (p StatsPhase) String() string {
	switch p {
	case StatsIdle:
		return "idle"
	case StatsLoading:
		return "loading"
	case StatsNotFound:
		return "not_found"
	case StatsError:
		return "error"
	case StatsFound:
		return "found"
	default:
		return "unknown"
	}
}

const (
	MsgLoadingStats  = "Loading stats..."
	MsgStatsNotFound = "No link exists for this code."
)

// StatsView is a snapshot of the stats controller. Link and ShortURL are set in
// StatsFound only; Message carries the not-found or error text.
type StatsView struct {
	Phase    StatsPhase
	Code     string
	Link     *model.Link
	ShortURL string
	Message  string
}

// StatsController loads the detail of one link at a time. Switching codes
// cancels the previous fetch and any late response for it is discarded.
type StatsController struct {
	repo    repository.LinkRepository
	baseURL string
	logger  *zap.Logger

	mu         sync.Mutex
	phase      StatsPhase
	code       string
	link       *model.Link
	message    string
	generation uint64
	cancel     context.CancelFunc
}

// NewStatsController creates a stats controller; baseURL is used to build short URLs
func NewStatsController(repo repository.LinkRepository, baseURL string) *StatsController {
	return &StatsController{
		repo:    repo,
		baseURL: baseURL,
		logger:  zap.L().With(zap.String("component", "StatsController")),
		phase:   StatsIdle,
	}
}

// Begin switches the view to code and enters Loading, dropping whatever was shown before
func (c *StatsController) Begin(code string) Ticket {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}

	c.generation++
	c.phase = StatsLoading
	c.code = code
	c.link = nil
	c.message = ""
	return Ticket{generation: c.generation, code: code}
}

// Fetch loads the link for ticket t and applies the result if t is still current
func (c *StatsController) Fetch(ctx context.Context, t Ticket) StatsView {
	c.mu.Lock()
	if t.generation != c.generation {
		defer c.mu.Unlock()
		recordStale("stats")
		return c.viewLocked()
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()
	defer cancel()

	link, err := c.repo.GetLink(ctx, t.code)

	c.mu.Lock()
	defer c.mu.Unlock()

	if t.generation != c.generation {
		recordStale("stats")
		c.logger.Debug("Discarding stale stats response", zap.String("code", t.code))
		return c.viewLocked()
	}
	c.cancel = nil

	switch {
	case err == nil:
		c.phase = StatsFound
		c.link = link
	case errors.Is(err, repository.ErrNotFound):
		c.phase = StatsNotFound
		c.message = MsgStatsNotFound
	default:
		c.logger.Warn("Failed to load stats", zap.String("code", t.code), zap.Error(err))
		c.phase = StatsError
		c.message = repository.Message(err)
	}
	return c.viewLocked()
}

// Load shows the stats for code, fetching them synchronously
func (c *StatsController) Load(ctx context.Context, code string) StatsView {
	return c.Fetch(ctx, c.Begin(code))
}

// Close cancels any fetch in flight
func (c *StatsController) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.generation++
}

// View returns a snapshot for rendering
func (c *StatsController) View() StatsView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *StatsController) viewLocked() StatsView {
	view := StatsView{
		Phase:   c.phase,
		Code:    c.code,
		Message: c.message,
	}
	if c.phase == StatsFound && c.link != nil {
		link := *c.link
		view.Link = &link
		view.ShortURL = model.ShortURL(c.baseURL, link.Code)
	}
	return view
}
