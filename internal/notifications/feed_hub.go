package notifications

import (
	"context"
	"encoding/json"
	"sync"

	"careervivid/internal/middleware"
	"careervivid/internal/models"
	"careervivid/internal/observability"
)

// WindowQuerier fetches the current top of the feed for one subscriber's
// filter. The hub calls it on every change signal; nextCursor lets clients
// seed their own paging from the pushed window.
type WindowQuerier func(ctx context.Context, filter models.PostType, limit int, userID uint) ([]*models.Post, string, error)

// WindowMessage is the wire frame pushed to every feed subscriber.
type WindowMessage struct {
	Type       string         `json:"type"`
	Posts      []*models.Post `json:"posts"`
	NextCursor string         `json:"next_cursor"`
	HasMore    bool           `json:"has_more"`
}

// Subscriber is one standing feed stream. Send is drained by the
// connection's write pump; a full buffer drops the frame rather than
// blocking the hub, the next change signal re-sends the whole window anyway.
type Subscriber struct {
	Filter models.PostType
	Limit  int
	UserID uint
	Send   chan []byte
}

// FeedHub fans feed change signals out to websocket subscribers. Unlike a
// message relay it never forwards the trigger payload: it re-queries the
// window and pushes the complete result, so subscribers cannot drift from
// the store no matter which signals they miss.
type FeedHub struct {
	mu      sync.RWMutex
	subs    map[*Subscriber]struct{}
	query   WindowQuerier
	started bool
}

func NewFeedHub(query WindowQuerier) *FeedHub {
	return &FeedHub{
		subs:  make(map[*Subscriber]struct{}),
		query: query,
	}
}

// Register adds a subscriber and immediately queues its initial window, so a
// freshly opened stream shows content without waiting for the first change.
func (h *FeedHub) Register(ctx context.Context, sub *Subscriber) {
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	n := len(h.subs)
	h.mu.Unlock()

	observability.FeedSubscribers.Set(float64(n))
	h.deliver(ctx, sub)
}

// Unregister removes a subscriber. The caller owns closing the Send channel
// after its write pump exits.
func (h *FeedHub) Unregister(sub *Subscriber) {
	h.mu.Lock()
	delete(h.subs, sub)
	n := len(h.subs)
	h.mu.Unlock()

	observability.FeedSubscribers.Set(float64(n))
}

// StartWiring connects the Notifier to this hub: every feed change signal
// re-delivers the full window to subscribers whose filter it affects.
func (h *FeedHub) StartWiring(ctx context.Context, n *Notifier) error {
	h.mu.Lock()
	h.started = true
	h.mu.Unlock()

	return n.StartFeedSubscriber(ctx, func(t models.PostType, trigger string) {
		h.NotifyChanged(ctx, t)
	})
}

// NotifyChanged pushes a fresh window to every subscriber affected by a
// change to posts of type t. A change to a typed post affects both the typed
// stream and the unfiltered one; the notifier publishes to both channels, so
// here an exact filter match is enough.
func (h *FeedHub) NotifyChanged(ctx context.Context, t models.PostType) {
	h.mu.RLock()
	targets := make([]*Subscriber, 0, len(h.subs))
	for sub := range h.subs {
		if sub.Filter == t {
			targets = append(targets, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range targets {
		h.deliver(ctx, sub)
	}
}

func (h *FeedHub) deliver(ctx context.Context, sub *Subscriber) {
	posts, nextCursor, err := h.query(ctx, sub.Filter, sub.Limit, sub.UserID)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "feed window query failed",
			"filter", string(sub.Filter), "error", err)
		return
	}

	msg := WindowMessage{
		Type:       "feed_window",
		Posts:      posts,
		NextCursor: nextCursor,
		HasMore:    nextCursor != "",
	}
	data, err := json.Marshal(msg)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "feed window marshal failed", "error", err)
		return
	}

	select {
	case sub.Send <- data:
		observability.FeedWindowDeliveries.Inc()
	default:
		// Slow consumer: skip, the next signal carries a complete window.
	}
}

// Shutdown drops all subscribers. Their write pumps see the hub stop
// sending and the connections close through their own contexts.
func (h *FeedHub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		delete(h.subs, sub)
	}
	observability.FeedSubscribers.Set(0)
	return nil
}

// SubscriberCount reports the number of standing streams.
func (h *FeedHub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
