// Package main provides a terminal client that follows the live feed. It
// subscribes to the websocket stream, pages older posts on demand, and prints
// the merged window. Useful for eyeballing live deliveries during development.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"careervivid/internal/feed"
	"careervivid/internal/models"
)

type windowFrame struct {
	Type       string        `json:"type"`
	Posts      []models.Post `json:"posts"`
	NextCursor string        `json:"next_cursor"`
	HasMore    bool          `json:"has_more"`
}

type feedPage struct {
	Posts      []models.Post `json:"posts"`
	NextCursor string        `json:"next_cursor"`
	HasMore    bool          `json:"has_more"`
}

func main() {
	host := flag.String("host", "localhost:8480", "API server host")
	typeFilter := flag.String("type", "", "post type filter (article, resume, portfolio, whiteboard)")
	token := flag.String("token", "", "JWT for liked flags (optional)")
	pageSize := flag.Int("page", 10, "load-more page size")
	pageEvery := flag.Duration("page-every", 15*time.Second, "interval between automatic load-more calls")
	flag.Parse()

	fetcher := feed.FetchFunc(func(ctx context.Context, cursor string, limit int) (feed.Page, error) {
		q := url.Values{}
		q.Set("cursor", cursor)
		q.Set("limit", fmt.Sprint(limit))
		if *typeFilter != "" {
			q.Set("type", *typeFilter)
		}
		u := fmt.Sprintf("http://%s/api/feed?%s", *host, q.Encode())

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return feed.Page{}, err
		}
		if *token != "" {
			req.Header.Set("Authorization", "Bearer "+*token)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return feed.Page{}, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return feed.Page{}, fmt.Errorf("feed fetch returned %s", resp.Status)
		}

		var page feedPage
		if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
			return feed.Page{}, err
		}
		return feed.Page{Posts: page.Posts, NextCursor: page.NextCursor, HasMore: page.HasMore}, nil
	})

	sync := feed.NewSynchronizer(fetcher, *pageSize)
	defer sync.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		cancel()
	}()

	go subscribe(ctx, *host, *typeFilter, *token, sync)

	ticker := time.NewTicker(*pageEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sync.LoadMore(ctx); err != nil && err != feed.ErrNoCursor {
				log.Printf("load more failed: %v", err)
			}
			printWindow(sync.Snapshot())
		}
	}
}

// subscribe keeps the websocket stream open, feeding deliveries into the
// synchronizer and marking the sticky error on transport failures.
func subscribe(ctx context.Context, host, typeFilter, token string, sync *feed.Synchronizer) {
	q := url.Values{}
	if typeFilter != "" {
		q.Set("type", typeFilter)
	}
	if token != "" {
		q.Set("token", token)
	}
	u := url.URL{Scheme: "ws", Host: host, Path: "/api/ws/feed", RawQuery: q.Encode()}

	for ctx.Err() == nil {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
		if err != nil {
			sync.SetLiveError(err)
			log.Printf("subscription failed, retrying: %v", err)
			time.Sleep(3 * time.Second)
			continue
		}
		sync.RetryLive()
		log.Printf("subscribed to %s", u.String())

		for {
			var frame windowFrame
			if err := conn.ReadJSON(&frame); err != nil {
				sync.SetLiveError(err)
				log.Printf("stream dropped: %v", err)
				break
			}
			if frame.Type != "feed_window" {
				continue
			}
			sync.ApplyLive(frame.Posts, frame.NextCursor)
			printWindow(sync.Snapshot())
		}
		_ = conn.Close()
	}
}

func printWindow(w feed.Window) {
	fmt.Printf("--- window (%d posts, has_more=%v) ---\n", len(w.Posts), w.HasMore)
	for _, p := range w.Posts {
		fmt.Printf("#%d [%s] %-40s  likes=%d comments=%d  %s\n",
			p.ID, p.Type, p.Payload.Title(),
			p.Metrics.Likes, p.Metrics.Comments,
			p.CreatedAt.Format(time.RFC3339))
	}
	if w.LiveErr != nil {
		fmt.Printf("live subscription error: %v\n", w.LiveErr)
	}
}
