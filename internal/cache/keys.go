package cache

import (
	"context"
	"strconv"
	"time"
)

// TTLs per key family. Post reads are cached briefly; counters change often
// and every mutation invalidates, so staleness is bounded by the transaction
// commit plus one invalidation round trip.
const (
	PostTTL = 60 * time.Second
)

// PostKey is the cache key for one post's point read.
func PostKey(id uint) string {
	return "post:" + strconv.FormatUint(uint64(id), 10)
}

// InvalidatePost drops a post's cached point read after a counter mutation.
func InvalidatePost(ctx context.Context, id uint) {
	Invalidate(ctx, PostKey(id))
}
