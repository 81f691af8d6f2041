package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"threads/models"
	"threads/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultFeedLimit = 20
	MaxFeedLimit     = 100
)

// FollowGraph decides whose posts are relevant to a viewer.
type FollowGraph interface {
	Following(ctx context.Context, viewerID primitive.ObjectID) ([]primitive.ObjectID, error)
}

type FeedPage struct {
	Posts      []models.Post `json:"posts"`
	NextCursor string        `json:"nextCursor,omitempty"`
}

type FeedService struct {
	posts store.PostStore
	graph FollowGraph
}

func NewFeedService(posts store.PostStore, graph FollowGraph) *FeedService {
	return &FeedService{posts: posts, graph: graph}
}

// Feed returns one page of posts by accounts the viewer follows, newest
// first. cursor is the NextCursor of the previous page, or empty.
func (f *FeedService) Feed(ctx context.Context, viewerID primitive.ObjectID, limit int, cursor string) (*FeedPage, error) {
	limit = clampLimit(limit)

	var before *store.Cursor
	if cursor != "" {
		c, err := store.DecodeCursor(cursor)
		if err != nil {
			return nil, err
		}
		before = c
	}

	following, err := f.graph.Following(ctx, viewerID)
	if errors.Is(err, store.ErrNotFound) {
		log.Printf("[Feed] viewer %s has no profile, returning empty feed", viewerID.Hex())
		return &FeedPage{Posts: []models.Post{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve following: %w", err)
	}
	if len(following) == 0 {
		return &FeedPage{Posts: []models.Post{}}, nil
	}

	// One extra row tells us whether another page exists.
	posts, err := f.posts.ListFeed(ctx, following, store.FeedQuery{Limit: limit + 1, Before: before})
	if err != nil {
		return nil, err
	}

	page := &FeedPage{Posts: posts}
	if len(posts) > limit {
		page.Posts = posts[:limit]
		page.NextCursor = store.CursorFor(&page.Posts[limit-1]).Encode()
	}
	return page, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultFeedLimit
	case limit > MaxFeedLimit:
		return MaxFeedLimit
	}
	return limit
}
