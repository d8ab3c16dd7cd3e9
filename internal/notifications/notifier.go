// Package notifications wires post mutations to live feed subscribers via
// Redis pub/sub. Publishers only announce that the feed changed; the hub
// re-queries the window itself, so every delivery a client sees is the full,
// consistent top of the feed and never an incremental patch.
package notifications

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"

	"careervivid/internal/models"
)

const feedChannelPrefix = "feed:changed:"

// Notifier provides helpers to publish feed change signals into Redis channels
type Notifier struct {
	rdb *redis.Client
}

func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// FeedChannel derives the channel name for a post type. Empty means the
// unfiltered feed.
func FeedChannel(t models.PostType) string {
	if t == "" {
		return feedChannelPrefix + "all"
	}
	return feedChannelPrefix + string(t)
}

// PublishFeedChanged announces that the window for a post type may have
// moved. Fired on post create/delete and on counter changes; the payload is
// just the trigger kind, subscribers re-query regardless.
func (n *Notifier) PublishFeedChanged(ctx context.Context, t models.PostType, trigger string) error {
	if n.rdb == nil {
		return nil
	}
	if err := n.rdb.Publish(ctx, FeedChannel(t), trigger).Err(); err != nil {
		return err
	}
	// Typed posts also appear in the unfiltered feed.
	if t != "" {
		return n.rdb.Publish(ctx, FeedChannel(""), trigger).Err()
	}
	return nil
}

// StartFeedSubscriber subscribes to pattern `feed:changed:*` and calls
// onMessage for each incoming signal with the affected post type.
func (n *Notifier) StartFeedSubscriber(
	ctx context.Context, onMessage func(t models.PostType, trigger string)) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, feedChannelPrefix+"*")
	ch := sub.Channel()

	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				t := strings.TrimPrefix(msg.Channel, feedChannelPrefix)
				if t == "all" {
					t = ""
				}
				onMessage(models.PostType(t), msg.Payload)
			}
		}
	}()

	return nil
}
