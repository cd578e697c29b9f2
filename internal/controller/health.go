package controller

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/fonsecaaso/tinylink/internal/model"
	"github.com/fonsecaaso/tinylink/internal/repository"
)

// HealthPhase is the state of the health view
type HealthPhase int

const (
	HealthLoading HealthPhase = iota
	HealthReady
	HealthFailed
)

func (p HealthPhase) String() string {
	switch p {
	case HealthLoading:
		return "loading"
	case HealthReady:
		return "ready"
	case HealthFailed:
		return "failed"
	default:
		return "unknown"
	}
}

const (
	MsgCheckingHealth    = "Checking health..."
	MsgHealthUnreachable = repository.MsgHealthFailed
)

// HealthView is a snapshot of the health controller
type HealthView struct {
	Phase   HealthPhase
	Health  *model.Health
	Message string
}

// HealthController checks the backend /healthz endpoint on demand
type HealthController struct {
	repo   repository.LinkRepository
	logger *zap.Logger

	mu         sync.Mutex
	phase      HealthPhase
	health     *model.Health
	message    string
	generation uint64
}

// NewHealthController creates a controller in the Loading state
func NewHealthController(repo repository.LinkRepository) *HealthController {
	return &HealthController{
		repo:   repo,
		logger: zap.L().With(zap.String("component", "HealthController")),
		phase:  HealthLoading,
	}
}

// Begin enters Loading for a new check
func (c *HealthController) Begin() Ticket {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	c.phase = HealthLoading
	c.health = nil
	c.message = ""
	return Ticket{generation: c.generation}
}

// Fetch runs the check for ticket t; an older check finishing late is ignored
func (c *HealthController) Fetch(ctx context.Context, t Ticket) HealthView {
	health, err := c.repo.Health(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if t.generation != c.generation {
		recordStale("health")
		return c.viewLocked()
	}

	if err != nil {
		c.logger.Warn("Health check failed", zap.Error(err))
		c.phase = HealthFailed
		c.message = MsgHealthUnreachable
		return c.viewLocked()
	}

	c.phase = HealthReady
	c.health = health
	return c.viewLocked()
}

// Check runs a health check synchronously
func (c *HealthController) Check(ctx context.Context) HealthView {
	return c.Fetch(ctx, c.Begin())
}

// View returns a snapshot for rendering
func (c *HealthController) View() HealthView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *HealthController) viewLocked() HealthView {
	view := HealthView{Phase: c.phase, Message: c.message}
	if c.health != nil {
		h := *c.health
		view.Health = &h
	}
	return view
}
