// Package feed maintains a client-local materialized window of the post feed.
// The window is fed from two sources at once: a live subscription that
// re-delivers the full newest page on every change, and one-shot "load more"
// fetches for older pages. The synchronizer merges both, deduplicating by
// post id while preserving reverse-chronological order.
package feed

import (
	"context"
	"errors"
	"sort"
	"sync"

	"careervivid/internal/models"
)

// State tracks the scroll session of one open feed view.
type State int

const (
	// StateIdle: constructed, no live delivery yet.
	StateIdle State = iota
	// StateLive: the first page is live and replaced wholesale on deliveries.
	StateLive
	// StatePaging: at least one older page has been merged in.
	StatePaging
	// StateExhausted: a page fetch returned fewer than pageSize items.
	// Terminal for this scroll session.
	StateExhausted
)

// ErrClosed is returned by operations on a torn-down synchronizer.
var ErrClosed = errors.New("feed: synchronizer closed")

// ErrNoCursor is returned by LoadMore before any live delivery establishes
// the paging boundary.
var ErrNoCursor = errors.New("feed: no cursor yet, wait for first window")

// Page is the result of one "load more" fetch against the server.
type Page struct {
	Posts      []models.Post
	NextCursor string
	HasMore    bool
}

// Fetcher issues the one-shot range query for posts older than the cursor.
type Fetcher interface {
	FetchOlder(ctx context.Context, cursor string, limit int) (Page, error)
}

// FetchFunc adapts a function to the Fetcher interface.
type FetchFunc func(ctx context.Context, cursor string, limit int) (Page, error)

// FetchOlder calls f.
func (f FetchFunc) FetchOlder(ctx context.Context, cursor string, limit int) (Page, error) {
	return f(ctx, cursor, limit)
}

// Window is a snapshot of the merged feed view handed to the UI.
type Window struct {
	Posts   []models.Post
	Cursor  string
	HasMore bool
	State   State
	LiveErr error
}

// Synchronizer owns one feed view's window for the lifetime of that view.
// It must be Closed when the view unmounts or the type filter changes;
// a replacement view gets a fresh Synchronizer.
type Synchronizer struct {
	mu       sync.Mutex
	fetcher  Fetcher
	pageSize int

	live    []models.Post
	older   []models.Post
	cursor  string
	hasMore bool
	state   State
	liveErr error
	closed  bool
}

// NewSynchronizer creates a Synchronizer paging with pageSize.
func NewSynchronizer(fetcher Fetcher, pageSize int) *Synchronizer {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &Synchronizer{
		fetcher:  fetcher,
		pageSize: pageSize,
		state:    StateIdle,
	}
}

// ApplyLive replaces the first-page slice wholesale with a fresh delivery.
// No incremental diffing: the source of truth always sends the full ordered
// window, so replacement is the whole merge rule for this source.
// nextCursor is the server-computed paging boundary for this window; it only
// seeds the cursor before the first LoadMore, later pages own it.
func (s *Synchronizer) ApplyLive(window []models.Post, nextCursor string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.live = append(s.live[:0], window...)
	s.liveErr = nil
	if s.state == StateIdle {
		s.state = StateLive
	}
	if s.state == StateLive {
		// Not yet paged: the live window's boundary is the paging cursor.
		s.cursor = nextCursor
		s.hasMore = nextCursor != ""
	}
}

// SetLiveError records a transport failure on the live subscription. The
// error is sticky until RetryLive; the already-merged window stays intact.
func (s *Synchronizer) SetLiveError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.liveErr = err
}

// RetryLive clears the sticky subscription error. The caller re-establishes
// the subscription; the store client owns reconnection itself.
func (s *Synchronizer) RetryLive() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.liveErr = nil
}

// LoadMore fetches the next older page and merges it in. A failed fetch
// leaves cursor and hasMore untouched and may simply be retried; the merged
// window is never corrupted by a failure.
func (s *Synchronizer) LoadMore(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.state == StateExhausted {
		s.mu.Unlock()
		return nil
	}
	if s.state == StateIdle || s.cursor == "" {
		s.mu.Unlock()
		return ErrNoCursor
	}
	cursor := s.cursor
	limit := s.pageSize
	s.mu.Unlock()

	// One-shot fetch outside the lock; abandoning it is harmless.
	page, err := s.fetcher.FetchOlder(ctx, cursor, limit)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	s.older = append(s.older, page.Posts...)
	s.cursor = page.NextCursor
	s.hasMore = page.HasMore
	if len(page.Posts) < limit {
		s.state = StateExhausted
		s.hasMore = false
	} else {
		s.state = StatePaging
	}
	return nil
}

// Remove evicts a post from the merged window. Callers invoke it when a
// mutation against the post comes back not-found: the row is gone server-side,
// and while the next live delivery flushes it from the first page, nothing
// else would ever drop it from already-merged older pages.
// Cursor and hasMore are untouched; the paging boundary is a timestamp, not
// an item.
func (s *Synchronizer) Remove(postID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.live = dropPost(s.live, postID)
	s.older = dropPost(s.older, postID)
}

func dropPost(posts []models.Post, id uint) []models.Post {
	out := posts[:0]
	for _, p := range posts {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}

// Snapshot returns the merged, deduplicated window in createdAt-descending
// order. An item present in both the live page and an older page (the
// boundary shifted mid-session) is kept once, at the position its createdAt
// dictates.
func (s *Synchronizer) Snapshot() Window {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := make([]models.Post, 0, len(s.live)+len(s.older))
	seen := make(map[uint]struct{}, len(s.live)+len(s.older))

	// Live entries win on conflict: they carry the freshest counters.
	for _, p := range s.live {
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		merged = append(merged, p)
	}
	for _, p := range s.older {
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		merged = append(merged, p)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].CreatedAt.Equal(merged[j].CreatedAt) {
			return merged[i].ID > merged[j].ID
		}
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})

	return Window{
		Posts:   merged,
		Cursor:  s.cursor,
		HasMore: s.hasMore,
		State:   s.state,
		LiveErr: s.liveErr,
	}
}

// State returns the current scroll-session state.
func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close tears the window down. Further deliveries are discarded; the owning
// view must also cancel its subscription or it keeps a standing stream open.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.live = nil
	s.older = nil
}
