package controller

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fonsecaaso/tinylink/internal/model"
	"github.com/fonsecaaso/tinylink/internal/repository"
)

func setupCreate(t *testing.T) (*CreateController, *ListController, *MockLinkRepository) {
	setupLogger(t)
	mockRepo := new(MockLinkRepository)
	list := NewListController(mockRepo)

	mockRepo.On("ListLinks", mock.Anything).Return(sampleLinks(), nil).Once()
	require.NoError(t, list.Load(context.Background()))

	return NewCreateController(mockRepo, list), list, mockRepo
}

func TestValidateForm(t *testing.T) {
	taken := func(code string) bool { return code == "docs12" }

	tests := []struct {
		name    string
		url     string
		code    string
		message string
		reason  string
	}{
		{name: "empty url", url: "", code: "", message: MsgURLRequired, reason: "url_required"},
		{name: "blank url", url: "   ", code: "", message: MsgURLRequired, reason: "url_required"},
		{name: "empty url wins over bad code", url: "", code: "ab", message: MsgURLRequired, reason: "url_required"},
		{name: "relative url", url: "not-a-url", code: "", message: MsgURLInvalid, reason: "url_invalid"},
		{name: "bad url wins over bad code", url: "example.com", code: "ab", message: MsgURLInvalid, reason: "url_invalid"},
		{name: "short code", url: "https://example.com", code: "ab", message: MsgCodeInvalid, reason: "code_invalid"},
		{name: "long code", url: "https://example.com", code: "abcdefghi", message: MsgCodeInvalid, reason: "code_invalid"},
		{name: "symbol in code", url: "https://example.com", code: "abc-12", message: MsgCodeInvalid, reason: "code_invalid"},
		{name: "padded code", url: "https://example.com", code: " abc123", message: MsgCodeInvalid, reason: "code_invalid"},
		{name: "existing code", url: "https://example.com", code: "docs12", message: MsgCodeTaken, reason: "code_taken"},
		{name: "valid without code", url: "  https://example.com  ", code: ""},
		{name: "valid with code", url: "https://example.com", code: "Abc12345"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verr := ValidateForm(tt.url, tt.code, taken)
			if tt.message == "" {
				assert.Nil(t, verr)
				return
			}
			require.NotNil(t, verr)
			assert.Equal(t, tt.message, verr.Message)
			assert.Equal(t, tt.reason, verr.Reason)
		})
	}
}

func TestValidateForm_NilExistsSkipsDuplicateCheck(t *testing.T) {
	assert.Nil(t, ValidateForm("https://example.com", "docs12", nil))
}

func TestCreateController_SuccessPrependsAndClears(t *testing.T) {
	create, list, mockRepo := setupCreate(t)
	ctx := context.Background()

	created := &model.Link{Code: "abc123de", LongURL: "https://example.com"}
	mockRepo.On("CreateLink", ctx, "https://example.com", "").Return(created, nil).Once()

	create.SetURL("  https://example.com ")
	state := create.Submit(ctx)

	assert.Equal(t, FormSuccess, state.Phase)
	assert.Equal(t, MsgLinkCreated, state.Message)
	assert.Empty(t, state.URL)
	assert.Empty(t, state.Code)
	require.NotNil(t, state.Created)
	assert.Equal(t, "abc123de", state.Created.Code)

	view := list.View()
	require.Len(t, view.Links, 3)
	assert.Equal(t, "abc123de", view.Links[0].Code)
	mockRepo.AssertExpectations(t)
}

func TestCreateController_InvalidURLMakesNoRequest(t *testing.T) {
	create, list, mockRepo := setupCreate(t)

	create.SetURL("not-a-url")
	state := create.Submit(context.Background())

	assert.Equal(t, FormError, state.Phase)
	assert.Equal(t, MsgURLInvalid, state.Message)
	assert.Equal(t, "not-a-url", state.URL)
	assert.Len(t, list.View().Links, 2)
	mockRepo.AssertNotCalled(t, "CreateLink", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateController_InvalidCodeMakesNoRequest(t *testing.T) {
	create, _, mockRepo := setupCreate(t)

	create.SetURL("https://example.com")
	create.SetCode("ab")
	state := create.Submit(context.Background())

	assert.Equal(t, FormError, state.Phase)
	assert.Equal(t, MsgCodeInvalid, state.Message)
	assert.Equal(t, "ab", state.Code)
	mockRepo.AssertNotCalled(t, "CreateLink", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateController_DuplicateCodeCaughtLocally(t *testing.T) {
	create, _, mockRepo := setupCreate(t)

	create.SetURL("https://example.com")
	create.SetCode("login88")
	state := create.Submit(context.Background())

	assert.Equal(t, FormError, state.Phase)
	assert.Equal(t, MsgCodeTaken, state.Message)
	mockRepo.AssertNotCalled(t, "CreateLink", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateController_ConflictKeepsFieldsAndList(t *testing.T) {
	create, list, mockRepo := setupCreate(t)
	ctx := context.Background()

	mockRepo.On("CreateLink", ctx, "https://example.com", "abc123").
		Return(nil, apiError(repository.ErrConflict, 409, "code taken")).Once()

	create.SetURL("https://example.com")
	create.SetCode("abc123")
	state := create.Submit(ctx)

	assert.Equal(t, FormError, state.Phase)
	assert.Equal(t, "code taken", state.Message)
	assert.Equal(t, "https://example.com", state.URL)
	assert.Equal(t, "abc123", state.Code)
	assert.Nil(t, state.Created)
	assert.Equal(t, sampleLinks(), list.View().Links)
}

func TestCreateController_GenericFailureMessage(t *testing.T) {
	create, _, mockRepo := setupCreate(t)
	ctx := context.Background()

	mockRepo.On("CreateLink", ctx, "https://example.com", "").
		Return(nil, apiError(repository.ErrServer, 502, repository.MsgCreateFailed)).Once()

	create.SetURL("https://example.com")
	state := create.Submit(ctx)

	assert.Equal(t, FormError, state.Phase)
	assert.Equal(t, repository.MsgCreateFailed, state.Message)
	assert.False(t, state.Submitting())
}

func TestCreateController_SecondSubmitIsBlocked(t *testing.T) {
	create, _, mockRepo := setupCreate(t)
	ctx := context.Background()

	create.SetURL("https://example.com")

	state, ok := create.Prepare()
	require.True(t, ok)
	assert.True(t, state.Submitting())

	again, ok := create.Prepare()
	assert.False(t, ok)
	assert.Equal(t, FormSubmitting, again.Phase)

	created := &model.Link{Code: "zz9988", LongURL: "https://example.com"}
	mockRepo.On("CreateLink", ctx, "https://example.com", "").Return(created, nil).Once()

	final := create.Send(ctx)

	assert.Equal(t, FormSuccess, final.Phase)
	mockRepo.AssertNumberOfCalls(t, "CreateLink", 1)
}

func TestCreateController_SendWithoutPrepareIsNoop(t *testing.T) {
	create, _, mockRepo := setupCreate(t)

	create.SetURL("https://example.com")
	state := create.Send(context.Background())

	assert.Equal(t, FormIdle, state.Phase)
	mockRepo.AssertNotCalled(t, "CreateLink", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateController_DismissReturnsToIdle(t *testing.T) {
	create, _, _ := setupCreate(t)

	create.SetURL("")
	state := create.Submit(context.Background())
	require.Equal(t, FormError, state.Phase)

	create.Dismiss()

	state = create.State()
	assert.Equal(t, FormIdle, state.Phase)
	assert.Empty(t, state.Message)
}

func TestCreateController_WithoutList(t *testing.T) {
	setupLogger(t)
	mockRepo := new(MockLinkRepository)
	create := NewCreateController(mockRepo, nil)
	ctx := context.Background()

	created := &model.Link{Code: "Solo01", LongURL: "https://example.com"}
	mockRepo.On("CreateLink", ctx, "https://example.com", "Solo01").Return(created, nil).Once()

	create.SetURL("https://example.com")
	create.SetCode("Solo01")
	state := create.Submit(ctx)

	assert.Equal(t, FormSuccess, state.Phase)
	assert.Equal(t, "Solo01", state.Created.Code)
}
