package controller

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/fonsecaaso/tinylink/internal/metrics"
	"github.com/fonsecaaso/tinylink/internal/model"
	"github.com/fonsecaaso/tinylink/internal/repository"
	"github.com/fonsecaaso/tinylink/internal/validation"
)

// FormPhase is the state of the create form
type FormPhase int

const (
	FormIdle FormPhase = iota
	FormValidating
	FormSubmitting
	FormSuccess
	FormError
)

func (p FormPhase) String() string {
	switch p {
	case FormIdle:
		return "idle"
	case FormValidating:
		return "validating"
	case FormSubmitting:
		return "submitting"
	case FormSuccess:
		return "success"
	case FormError:
		return "error"
	default:
		return "unknown"
	}
}

const (
	MsgURLRequired = "Please enter a URL."
	MsgURLInvalid  = "Please enter a valid URL (include http/https)."
	MsgCodeInvalid = "Code must be 6–8 characters (A–Z, a–z, 0–9)."
	MsgCodeTaken   = "This code already exists. Please choose another."
	MsgLinkCreated = "Link created successfully."
)

// ValidationError is a form problem caught before anything is sent to the API
type ValidationError struct {
	Field   string
	Reason  string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// FormState is a snapshot of the create form. Message is the success text in
// FormSuccess, the error text in FormError and empty otherwise.
type FormState struct {
	URL     string
	Code    string
	Phase   FormPhase
	Message string
	Created *model.Link
}

// Submitting reports whether a create request is in flight
func (s FormState) Submitting() bool {
	return s.Phase == FormSubmitting
}

// ValidateForm checks a create request in order and returns the first problem found.
// exists may be nil; when set it reports codes already present in the collection.
func ValidateForm(rawURL, code string, exists func(string) bool) *ValidationError {
	trimmed := strings.TrimSpace(rawURL)
	switch {
	case trimmed == "":
		return &ValidationError{Field: "url", Reason: "url_required", Message: MsgURLRequired}
	case !validation.IsValidURL(trimmed):
		return &ValidationError{Field: "url", Reason: "url_invalid", Message: MsgURLInvalid}
	case code != "" && !validation.IsValidCode(code):
		return &ValidationError{Field: "code", Reason: "code_invalid", Message: MsgCodeInvalid}
	case code != "" && exists != nil && exists(code):
		return &ValidationError{Field: "code", Reason: "code_taken", Message: MsgCodeTaken}
	}
	return nil
}

// CreateController runs the create form: validation, submission and merging the
// created link into the list controller
type CreateController struct {
	repo   repository.LinkRepository
	list   *ListController
	logger *zap.Logger

	mu      sync.Mutex
	url     string
	code    string
	phase   FormPhase
	message string
	created *model.Link
}

// NewCreateController creates a form bound to list. list may be nil for one-shot use.
func NewCreateController(repo repository.LinkRepository, list *ListController) *CreateController {
	return &CreateController{
		repo:   repo,
		list:   list,
		logger: zap.L().With(zap.String("component", "CreateController")),
		phase:  FormIdle,
	}
}

// SetURL updates the URL field
func (c *CreateController) SetURL(value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.url = value
}

// SetCode updates the optional custom code field
func (c *CreateController) SetCode(value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.code = value
}

// Prepare validates the form and, when it passes, enters Submitting.
// It returns false when nothing should be sent: a validation failure or a
// submission already in flight.
func (c *CreateController) Prepare() (FormState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase == FormSubmitting {
		c.logger.Debug("Ignoring submit while a create is in flight")
		return c.stateLocked(), false
	}

	c.phase = FormValidating
	c.message = ""
	c.created = nil

	var exists func(string) bool
	if c.list != nil {
		exists = c.list.HasCode
	}

	if verr := ValidateForm(c.url, c.code, exists); verr != nil {
		metrics.ValidationFailuresTotal.WithLabelValues(verr.Reason).Inc()
		c.phase = FormError
		c.message = verr.Message
		return c.stateLocked(), false
	}

	c.phase = FormSubmitting
	return c.stateLocked(), true
}

// Send performs the create call for a prepared form and applies the outcome
func (c *CreateController) Send(ctx context.Context) FormState {
	c.mu.Lock()
	if c.phase != FormSubmitting {
		defer c.mu.Unlock()
		return c.stateLocked()
	}
	longURL := strings.TrimSpace(c.url)
	code := c.code
	c.mu.Unlock()

	link, err := c.repo.CreateLink(ctx, longURL, code)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.logger.Info("Create failed", zap.String("url", longURL), zap.Error(err))
		c.phase = FormError
		c.message = repository.Message(err)
		return c.stateLocked()
	}

	if c.list != nil {
		c.list.Prepend(*link)
	}
	c.url = ""
	c.code = ""
	c.phase = FormSuccess
	c.message = MsgLinkCreated
	c.created = link
	c.logger.Info("Link created", zap.String("code", link.Code))
	return c.stateLocked()
}

// Submit validates and, if valid, sends the form
func (c *CreateController) Submit(ctx context.Context) FormState {
	state, ok := c.Prepare()
	if !ok {
		return state
	}
	return c.Send(ctx)
}

// Dismiss returns a finished form (success or error) to Idle, keeping its fields
func (c *CreateController) Dismiss() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase == FormSuccess || c.phase == FormError {
		c.phase = FormIdle
		c.message = ""
		c.created = nil
	}
}

// State returns a snapshot of the form
func (c *CreateController) State() FormState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *CreateController) stateLocked() FormState {
	return FormState{
		URL:     c.url,
		Code:    c.code,
		Phase:   c.phase,
		Message: c.message,
		Created: c.created,
	}
}
