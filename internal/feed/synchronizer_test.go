package feed

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"careervivid/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// post builds a fake feed entry; higher id means newer.
func post(id uint) models.Post {
	return models.Post{
		ID:        id,
		CreatedAt: baseTime.Add(time.Duration(id) * time.Minute),
	}
}

func posts(ids ...uint) []models.Post {
	out := make([]models.Post, len(ids))
	for i, id := range ids {
		out[i] = post(id)
	}
	return out
}

func ids(w Window) []uint {
	out := make([]uint, len(w.Posts))
	for i, p := range w.Posts {
		out[i] = p.ID
	}
	return out
}

type stubFetcher struct {
	pages []Page
	errs  []error
	calls int
}

func (f *stubFetcher) FetchOlder(ctx context.Context, cursor string, limit int) (Page, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return Page{}, f.errs[i]
	}
	if i >= len(f.pages) {
		return Page{}, nil
	}
	return f.pages[i], nil
}

func TestApplyLiveReplacesWindowWholesale(t *testing.T) {
	s := NewSynchronizer(&stubFetcher{}, 3)
	assert.Equal(t, StateIdle, s.State())

	s.ApplyLive(posts(30, 29, 28), "c1")
	assert.Equal(t, StateLive, s.State())
	assert.Equal(t, []uint{30, 29, 28}, ids(s.Snapshot()))

	// A new delivery replaces, never appends: 28 fell off the window.
	s.ApplyLive(posts(31, 30, 29), "c2")
	w := s.Snapshot()
	assert.Equal(t, []uint{31, 30, 29}, ids(w))
	assert.Equal(t, "c2", w.Cursor)
}

func TestLoadMoreMergesOlderPages(t *testing.T) {
	fetcher := &stubFetcher{pages: []Page{
		{Posts: posts(27, 26, 25), NextCursor: "c-25", HasMore: true},
	}}
	s := NewSynchronizer(fetcher, 3)
	s.ApplyLive(posts(30, 29, 28), "c-28")

	require.NoError(t, s.LoadMore(context.Background()))
	assert.Equal(t, StatePaging, s.State())
	assert.Equal(t, []uint{30, 29, 28, 27, 26, 25}, ids(s.Snapshot()))
}

func TestLoadMoreBeforeFirstWindow(t *testing.T) {
	s := NewSynchronizer(&stubFetcher{}, 3)
	assert.ErrorIs(t, s.LoadMore(context.Background()), ErrNoCursor)
}

func TestMergeDeduplicatesByID(t *testing.T) {
	fetcher := &stubFetcher{pages: []Page{
		{Posts: posts(28, 27, 26), NextCursor: "c-26", HasMore: true},
	}}
	s := NewSynchronizer(fetcher, 3)
	s.ApplyLive(posts(30, 29, 28), "c-28")
	require.NoError(t, s.LoadMore(context.Background()))

	// A new post pushed the boundary: 28 now arrives in BOTH the live window
	// and the already-merged older page.
	s.ApplyLive(posts(31, 30, 29), "c-29")
	w := s.Snapshot()
	assert.Equal(t, []uint{31, 30, 29, 28, 27, 26}, ids(w),
		"each post appears once, in createdAt-descending order")
}

func TestFailedPageFetchLeavesStateUntouched(t *testing.T) {
	fetchErr := errors.New("connection reset")
	fetcher := &stubFetcher{
		errs:  []error{fetchErr, nil},
		pages: []Page{{}, {Posts: posts(27, 26, 25), NextCursor: "c-25", HasMore: true}},
	}
	s := NewSynchronizer(fetcher, 3)
	s.ApplyLive(posts(30, 29, 28), "c-28")

	before := s.Snapshot()
	err := s.LoadMore(context.Background())
	require.ErrorIs(t, err, fetchErr)

	after := s.Snapshot()
	assert.Equal(t, before.Cursor, after.Cursor, "cursor unchanged on failure")
	assert.Equal(t, before.HasMore, after.HasMore)
	assert.Equal(t, ids(before), ids(after), "window unchanged on failure")

	// A plain retry succeeds against the same cursor.
	require.NoError(t, s.LoadMore(context.Background()))
	assert.Equal(t, []uint{30, 29, 28, 27, 26, 25}, ids(s.Snapshot()))
}

func TestShortPageExhaustsFeed(t *testing.T) {
	fetcher := &stubFetcher{pages: []Page{
		{Posts: posts(27, 26), NextCursor: "", HasMore: false},
	}}
	s := NewSynchronizer(fetcher, 3)
	s.ApplyLive(posts(30, 29, 28), "c-28")

	require.NoError(t, s.LoadMore(context.Background()))
	w := s.Snapshot()
	assert.Equal(t, StateExhausted, w.State)
	assert.False(t, w.HasMore)

	// Further calls are no-ops, not errors.
	require.NoError(t, s.LoadMore(context.Background()))
	assert.Equal(t, 1, fetcher.calls)
}

func TestLiveErrorIsStickyUntilRetry(t *testing.T) {
	s := NewSynchronizer(&stubFetcher{}, 3)
	s.ApplyLive(posts(30, 29), "c")

	subErr := errors.New("stream dropped")
	s.SetLiveError(subErr)
	w := s.Snapshot()
	assert.ErrorIs(t, w.LiveErr, subErr)
	assert.Equal(t, []uint{30, 29}, ids(w), "window survives the subscription error")

	s.RetryLive()
	assert.NoError(t, s.Snapshot().LiveErr)

	// A fresh delivery also clears the error.
	s.SetLiveError(subErr)
	s.ApplyLive(posts(31, 30), "c2")
	assert.NoError(t, s.Snapshot().LiveErr)
}

func TestLiveDeliveryKeepsPagingCursorOncePaged(t *testing.T) {
	fetcher := &stubFetcher{pages: []Page{
		{Posts: posts(27, 26, 25), NextCursor: "c-25", HasMore: true},
	}}
	s := NewSynchronizer(fetcher, 3)
	s.ApplyLive(posts(30, 29, 28), "c-28")
	require.NoError(t, s.LoadMore(context.Background()))

	// After paging, the paging boundary belongs to the pages, not the window.
	s.ApplyLive(posts(31, 30, 29), "c-29")
	assert.Equal(t, "c-25", s.Snapshot().Cursor)
}

func TestCloseDiscardsFurtherDeliveries(t *testing.T) {
	s := NewSynchronizer(&stubFetcher{}, 3)
	s.ApplyLive(posts(30), "c")
	s.Close()

	s.ApplyLive(posts(31, 30), "c2")
	assert.Empty(t, s.Snapshot().Posts)
	assert.ErrorIs(t, s.LoadMore(context.Background()), ErrClosed)
}

func TestTimestampTieBreaksByID(t *testing.T) {
	a := post(10)
	b := post(11)
	b.CreatedAt = a.CreatedAt // collide

	s := NewSynchronizer(&stubFetcher{}, 3)
	s.ApplyLive([]models.Post{a, b}, "c")
	assert.Equal(t, []uint{11, 10}, ids(s.Snapshot()))
}

func TestRemoveEvictsDeletedPostFromOlderPages(t *testing.T) {
	fetcher := &stubFetcher{pages: []Page{
		{Posts: posts(27, 26, 25), NextCursor: "c-25", HasMore: true},
	}}
	s := NewSynchronizer(fetcher, 3)
	s.ApplyLive(posts(30, 29, 28), "c-28")
	require.NoError(t, s.LoadMore(context.Background()))

	// Post 26 was deleted server-side. Live deliveries only replace the
	// first page, so they can never flush it out of the merged older pages.
	s.ApplyLive(posts(31, 30, 29), "")
	assert.Contains(t, ids(s.Snapshot()), uint(26))

	s.Remove(26)
	w := s.Snapshot()
	assert.NotContains(t, ids(w), uint(26))
	assert.Equal(t, []uint{31, 30, 29, 27, 25}, ids(w))

	// Paging state survives the eviction.
	assert.Equal(t, "c-25", w.Cursor)
	assert.True(t, w.HasMore)
	assert.Equal(t, StatePaging, w.State)
}

func TestRemoveEvictsFromLiveWindow(t *testing.T) {
	s := NewSynchronizer(&stubFetcher{}, 3)
	s.ApplyLive(posts(30, 29, 28), "c-28")

	s.Remove(29)
	assert.Equal(t, []uint{30, 28}, ids(s.Snapshot()))

	// Unknown ids and removal after Close are both no-ops.
	s.Remove(99)
	assert.Equal(t, []uint{30, 28}, ids(s.Snapshot()))
	s.Close()
	s.Remove(30)
}

func TestFetchFuncAdapter(t *testing.T) {
	called := false
	f := FetchFunc(func(ctx context.Context, cursor string, limit int) (Page, error) {
		called = true
		assert.Equal(t, "cur", cursor)
		assert.Equal(t, 7, limit)
		return Page{}, nil
	})
	_, err := f.FetchOlder(context.Background(), "cur", 7)
	require.NoError(t, err)
	assert.True(t, called)
}

func TestStateProgression(t *testing.T) {
	pages := make([]Page, 0, 2)
	pages = append(pages, Page{Posts: posts(27, 26, 25), NextCursor: "c-25", HasMore: true})
	pages = append(pages, Page{Posts: posts(24), HasMore: false})
	s := NewSynchronizer(&stubFetcher{pages: pages}, 3)

	states := []State{s.State()}
	s.ApplyLive(posts(30, 29, 28), fmt.Sprintf("c-%d", 28))
	states = append(states, s.State())
	require.NoError(t, s.LoadMore(context.Background()))
	states = append(states, s.State())
	require.NoError(t, s.LoadMore(context.Background()))
	states = append(states, s.State())

	assert.Equal(t, []State{StateIdle, StateLive, StatePaging, StateExhausted}, states)
}
