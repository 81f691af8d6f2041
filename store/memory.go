package store

import (
	"context"
	"sort"
	"sync"

	"threads/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Memory is an in-process PostStore and ReplyStore. Every mutation runs under
// one lock, which gives it the same single-document atomicity as Mongo.
type Memory struct {
	mu    sync.RWMutex
	posts map[primitive.ObjectID]*models.Post
}

var (
	_ PostStore  = (*Memory)(nil)
	_ ReplyStore = (*Memory)(nil)
)

func NewMemory() *Memory {
	return &Memory{posts: make(map[primitive.ObjectID]*models.Post)}
}

func (m *Memory) Create(ctx context.Context, authorID primitive.ObjectID, text, image string) (*models.Post, error) {
	p, err := newPost(authorID, text, image)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts[p.ID] = p
	return p.Clone(), nil
}

func (m *Memory) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

func (m *Memory) ListByAuthor(ctx context.Context, authorID primitive.ObjectID) ([]models.Post, error) {
	return m.collect(func(p *models.Post) bool { return p.AuthorID == authorID }, nil, 0), nil
}

func (m *Memory) ListFeed(ctx context.Context, authorIDs []primitive.ObjectID, q FeedQuery) ([]models.Post, error) {
	if len(authorIDs) == 0 {
		return []models.Post{}, nil
	}
	authors := make(map[primitive.ObjectID]struct{}, len(authorIDs))
	for _, id := range authorIDs {
		authors[id] = struct{}{}
	}
	match := func(p *models.Post) bool {
		_, ok := authors[p.AuthorID]
		return ok
	}
	return m.collect(match, q.Before, q.Limit), nil
}

func (m *Memory) collect(match func(*models.Post) bool, before *Cursor, limit int) []models.Post {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Post, 0)
	for _, p := range m.posts {
		if !match(p) {
			continue
		}
		if before != nil && !before.before(p) {
			continue
		}
		out = append(out, *p.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.Hex() > out[j].ID.Hex()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (m *Memory) Delete(ctx context.Context, id, requesterID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.posts[id]
	if !ok {
		return ErrNotFound
	}
	if p.AuthorID != requesterID {
		return ErrUnauthorized
	}
	delete(m.posts, id)
	return nil
}

func (m *Memory) ToggleLike(ctx context.Context, id, userID primitive.ObjectID) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.posts[id]
	if !ok {
		return nil, ErrNotFound
	}

	likes := make([]primitive.ObjectID, 0, len(p.Likes)+1)
	removed := false
	for _, l := range p.Likes {
		if l == userID {
			removed = true
			continue
		}
		likes = append(likes, l)
	}
	if !removed {
		likes = append(likes, userID)
	}
	p.Likes = likes
	p.UpdatedAt = now()
	return p.Clone(), nil
}

func (m *Memory) Append(ctx context.Context, postID, authorID primitive.ObjectID, text string, author models.AuthorSnapshot) (*models.Reply, error) {
	r, err := newReply(authorID, text, author)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.posts[postID]
	if !ok {
		return nil, ErrNotFound
	}
	p.Replies = append(p.Replies, *r)
	p.UpdatedAt = r.CreatedAt
	out := *r
	return &out, nil
}

func (m *Memory) Remove(ctx context.Context, postID, replyID, requesterID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.posts[postID]
	if !ok {
		return ErrNotFound
	}
	idx := -1
	for i := range p.Replies {
		if p.Replies[i].ID == replyID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNotFound
	}
	if !canRemoveReply(p, &p.Replies[idx], requesterID) {
		return ErrUnauthorized
	}

	replies := make([]models.Reply, 0, len(p.Replies)-1)
	replies = append(replies, p.Replies[:idx]...)
	replies = append(replies, p.Replies[idx+1:]...)
	p.Replies = replies
	p.UpdatedAt = now()
	return nil
}

// canRemoveReply allows the reply's author and the post's author.
func canRemoveReply(p *models.Post, r *models.Reply, requesterID primitive.ObjectID) bool {
	return r.AuthorID == requesterID || p.AuthorID == requesterID
}
