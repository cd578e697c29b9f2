package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fonsecaaso/tinylink/internal/model"
	"github.com/fonsecaaso/tinylink/internal/store"
	"github.com/fonsecaaso/tinylink/internal/validation"
)

const (
	errInvalidBody  = "Invalid request format."
	errInvalidURL   = "Invalid URL format."
	errInvalidCode  = "Code must be 6-8 alphanumeric characters."
	errCodeExists   = "Code already exists."
	errLinkNotFound = "Link not found."
	errInternal     = "Internal server error."
)

// LinkStore is the storage the handler serves from
type LinkStore interface {
	List() []model.Link
	Create(longURL, code string) (model.Link, error)
	Get(code string) (model.Link, error)
	Delete(code string) error
	RecordClick(code string) (model.Link, error)
}

type listResponse struct {
	Data []model.Link `json:"data"`
}

// LinkHandler serves the /api/links endpoints, /healthz and short code redirects
type LinkHandler struct {
	store   LinkStore
	version string
	started time.Time
	logger  *zap.Logger
}

func NewLinkHandler(store LinkStore, version string) *LinkHandler {
	return &LinkHandler{
		store:   store,
		version: version,
		started: time.Now(),
		logger:  zap.L().With(zap.String("component", "LinkHandler")),
	}
}

func (h *LinkHandler) ListLinks(c *gin.Context) {
	c.JSON(http.StatusOK, listResponse{Data: h.store.List()})
}

func (h *LinkHandler) CreateLink(c *gin.Context) {
	var req model.CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: errInvalidBody})
		return
	}

	longURL := strings.TrimSpace(req.LongURL)
	if !validation.IsValidURL(longURL) {
		h.logger.Warn("Invalid URL provided", zap.String("url", req.LongURL))
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: errInvalidURL})
		return
	}
	if req.Code != "" && !validation.IsValidCode(req.Code) {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: errInvalidCode})
		return
	}

	link, err := h.store.Create(longURL, req.Code)
	if err != nil {
		h.handleError(c, err)
		return
	}

	h.logger.Info("Link created", zap.String("code", link.Code))
	c.JSON(http.StatusCreated, link)
}

func (h *LinkHandler) GetLink(c *gin.Context) {
	link, err := h.store.Get(c.Param("code"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, listResponse{Data: []model.Link{link}})
}

func (h *LinkHandler) DeleteLink(c *gin.Context) {
	code := c.Param("code")
	if err := h.store.Delete(code); err != nil {
		h.handleError(c, err)
		return
	}
	h.logger.Info("Link deleted", zap.String("code", code))
	c.Status(http.StatusNoContent)
}

// Redirect sends the visitor to the long URL and counts the click
func (h *LinkHandler) Redirect(c *gin.Context) {
	code := c.Param("code")
	if !validation.IsValidCode(code) {
		c.JSON(http.StatusNotFound, model.ErrorResponse{Error: errLinkNotFound})
		return
	}

	link, err := h.store.RecordClick(code)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.Redirect(http.StatusFound, link.LongURL)
}

func (h *LinkHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, model.Health{
		OK:      true,
		Version: h.version,
		Uptime:  time.Since(h.started).Round(time.Second).String(),
	})
}

func (h *LinkHandler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, model.ErrorResponse{Error: errLinkNotFound})
	case errors.Is(err, store.ErrCodeExists):
		c.JSON(http.StatusConflict, model.ErrorResponse{Error: errCodeExists})
	default:
		h.logger.Error("Unexpected error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: errInternal})
	}
}
