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

func setupList(t *testing.T) (*ListController, *MockLinkRepository) {
	setupLogger(t)
	mockRepo := new(MockLinkRepository)
	return NewListController(mockRepo), mockRepo
}

func TestListController_StartsLoading(t *testing.T) {
	list, _ := setupList(t)

	view := list.View()

	assert.Equal(t, ListLoading, view.State)
	assert.Empty(t, view.EmptyMessage)
	assert.Empty(t, view.LoadError)
	assert.Nil(t, view.Links)
}

func TestListController_LoadSuccess(t *testing.T) {
	list, mockRepo := setupList(t)
	ctx := context.Background()

	mockRepo.On("ListLinks", ctx).Return(sampleLinks(), nil).Once()

	require.NoError(t, list.Load(ctx))

	view := list.View()
	assert.Equal(t, ListLoaded, view.State)
	assert.Equal(t, sampleLinks(), view.Links)
	assert.Equal(t, 2, view.Total)
	assert.Empty(t, view.EmptyMessage)
	mockRepo.AssertExpectations(t)
}

func TestListController_EmptyLoadIsNotAnError(t *testing.T) {
	list, mockRepo := setupList(t)
	ctx := context.Background()

	mockRepo.On("ListLinks", ctx).Return([]model.Link{}, nil).Once()

	require.NoError(t, list.Load(ctx))

	view := list.View()
	assert.Equal(t, ListLoaded, view.State)
	assert.Equal(t, MsgNoLinks, view.EmptyMessage)
	assert.Empty(t, view.LoadError)
}

func TestListController_LoadFailureIsDistinctFromEmpty(t *testing.T) {
	list, mockRepo := setupList(t)
	ctx := context.Background()

	mockRepo.On("ListLinks", ctx).Return(nil, apiError(repository.ErrServer, 500, repository.MsgListFailed)).Once()

	err := list.Load(ctx)

	assert.ErrorIs(t, err, repository.ErrServer)
	view := list.View()
	assert.Equal(t, ListLoadFailed, view.State)
	assert.Equal(t, repository.MsgListFailed, view.LoadError)
	assert.Empty(t, view.EmptyMessage)
	assert.Nil(t, view.Links)
}

func TestListController_RefreshAfterFailure(t *testing.T) {
	list, mockRepo := setupList(t)
	ctx := context.Background()

	mockRepo.On("ListLinks", ctx).Return(nil, apiError(repository.ErrTransport, 0, repository.MsgListFailed)).Once()
	mockRepo.On("ListLinks", ctx).Return(sampleLinks(), nil).Once()

	_ = list.Load(ctx)
	require.NoError(t, list.Load(ctx))

	view := list.View()
	assert.Equal(t, ListLoaded, view.State)
	assert.Empty(t, view.LoadError)
	assert.Len(t, view.Links, 2)
}

func TestListController_QueryFiltersWithoutFetching(t *testing.T) {
	list, mockRepo := setupList(t)
	ctx := context.Background()

	mockRepo.On("ListLinks", ctx).Return(sampleLinks(), nil).Once()
	require.NoError(t, list.Load(ctx))

	list.SetQuery("LOG")
	view := list.View()
	require.Len(t, view.Links, 1)
	assert.Equal(t, "login88", view.Links[0].Code)
	assert.Equal(t, 2, view.Total)
	assert.Equal(t, "LOG", view.Query)

	list.SetQuery("nothing")
	assert.Equal(t, MsgNoMatches, list.View().EmptyMessage)

	list.SetQuery("")
	assert.Len(t, list.View().Links, 2)

	mockRepo.AssertNumberOfCalls(t, "ListLinks", 1)
}

func TestListController_QueryAppliesToLaterLoads(t *testing.T) {
	list, mockRepo := setupList(t)
	ctx := context.Background()

	list.SetQuery("https://example")
	mockRepo.On("ListLinks", ctx).Return(sampleLinks(), nil).Once()
	require.NoError(t, list.Load(ctx))

	view := list.View()
	require.Len(t, view.Links, 1)
	assert.Equal(t, "docs12", view.Links[0].Code)
}

func TestListController_DeleteSuccessRemovesWithoutRefetch(t *testing.T) {
	list, mockRepo := setupList(t)
	ctx := context.Background()

	mockRepo.On("ListLinks", ctx).Return(sampleLinks(), nil).Once()
	mockRepo.On("DeleteLink", ctx, "docs12").Return(nil).Once()
	require.NoError(t, list.Load(ctx))

	require.NoError(t, list.Delete(ctx, "docs12"))

	view := list.View()
	require.Len(t, view.Links, 1)
	assert.Equal(t, "login88", view.Links[0].Code)
	assert.Empty(t, view.DeleteError)
	assert.Empty(t, view.Deleting)
	assert.False(t, list.HasCode("docs12"))
	mockRepo.AssertNumberOfCalls(t, "ListLinks", 1)
}

func TestListController_DeleteMissingCodeLeavesCollection(t *testing.T) {
	list, mockRepo := setupList(t)
	ctx := context.Background()

	mockRepo.On("ListLinks", ctx).Return(sampleLinks(), nil).Once()
	mockRepo.On("DeleteLink", ctx, "ghost1").
		Return(apiError(repository.ErrNotFound, 404, "Link not found")).Once()
	require.NoError(t, list.Load(ctx))

	err := list.Delete(ctx, "ghost1")

	assert.ErrorIs(t, err, repository.ErrNotFound)
	view := list.View()
	assert.Equal(t, sampleLinks(), view.Links)
	assert.Equal(t, "Link not found", view.DeleteError)
	assert.Equal(t, ListLoaded, view.State)

	list.ClearDeleteError()
	assert.Empty(t, list.View().DeleteError)
}

func TestListController_DeleteFailureKeepsExistingEntry(t *testing.T) {
	list, mockRepo := setupList(t)
	ctx := context.Background()

	mockRepo.On("ListLinks", ctx).Return(sampleLinks(), nil).Once()
	mockRepo.On("DeleteLink", ctx, "docs12").
		Return(apiError(repository.ErrServer, 500, repository.MsgDeleteFailed)).Once()
	require.NoError(t, list.Load(ctx))

	_ = list.Delete(ctx, "docs12")

	assert.True(t, list.HasCode("docs12"))
	assert.Equal(t, repository.MsgDeleteFailed, list.View().DeleteError)
}

func TestListController_PrependKeepsCodesUnique(t *testing.T) {
	list, mockRepo := setupList(t)
	ctx := context.Background()

	mockRepo.On("ListLinks", ctx).Return(sampleLinks(), nil).Once()
	require.NoError(t, list.Load(ctx))

	list.Prepend(model.Link{Code: "new123", LongURL: "https://new.example"})
	list.Prepend(model.Link{Code: "login88", LongURL: "https://app.example.com/login", Clicks: 6})

	view := list.View()
	require.Len(t, view.Links, 3)
	assert.Equal(t, "login88", view.Links[0].Code)
	assert.Equal(t, int64(6), view.Links[0].Clicks)
	assert.Equal(t, "new123", view.Links[1].Code)
	assert.Equal(t, "docs12", view.Links[2].Code)
}

func TestListController_StaleLoadIsDiscarded(t *testing.T) {
	list, mockRepo := setupList(t)
	ctx := context.Background()

	newer := []model.Link{{Code: "fresh1", LongURL: "https://fresh.example"}}
	mockRepo.On("ListLinks", mock.Anything).Return(newer, nil).Once()
	mockRepo.On("ListLinks", mock.Anything).Return(sampleLinks(), nil).Once()

	first := list.Begin()
	second := list.Begin()

	require.NoError(t, list.Fetch(ctx, second))
	require.NoError(t, list.Fetch(ctx, first))

	view := list.View()
	assert.Equal(t, ListLoaded, view.State)
	assert.Equal(t, newer, view.Links)
}

func TestListController_BeginClearsErrors(t *testing.T) {
	list, mockRepo := setupList(t)
	ctx := context.Background()

	mockRepo.On("ListLinks", ctx).Return(nil, apiError(repository.ErrServer, 500, repository.MsgListFailed)).Once()
	_ = list.Load(ctx)

	list.Begin()

	view := list.View()
	assert.Equal(t, ListLoading, view.State)
	assert.Empty(t, view.LoadError)
}
