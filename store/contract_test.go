package store

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"threads/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type backend interface {
	PostStore
	ReplyStore
}

// runContract exercises the behaviour both store implementations must share.
func runContract(t *testing.T, open func(t *testing.T) backend) {
	t.Run("create rejects empty post", func(t *testing.T) {
		s := open(t)
		_, err := s.Create(context.Background(), primitive.NewObjectID(), "  ", "")
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
	})

	t.Run("create rejects oversized text", func(t *testing.T) {
		s := open(t)
		_, err := s.Create(context.Background(), primitive.NewObjectID(), strings.Repeat("x", 501), "")
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "text", verr.Field)
	})

	t.Run("create accepts image only and trims text", func(t *testing.T) {
		s := open(t)
		p, err := s.Create(context.Background(), primitive.NewObjectID(), "   ", "https://img.example/a.png")
		require.NoError(t, err)
		assert.Equal(t, "", p.Text)
		assert.False(t, p.ID.IsZero())
		assert.False(t, p.CreatedAt.IsZero())
		assert.Equal(t, p.CreatedAt, p.UpdatedAt)
	})

	t.Run("lifecycle scenario", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		author, u, v := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()

		p, err := s.Create(ctx, author, "hello", "")
		require.NoError(t, err)
		assert.Equal(t, 0, p.LikesCount())
		assert.Empty(t, p.Replies)

		p, err = s.ToggleLike(ctx, p.ID, u)
		require.NoError(t, err)
		assert.Equal(t, []primitive.ObjectID{u}, p.Likes)
		assert.Equal(t, 1, p.LikesCount())

		p, err = s.ToggleLike(ctx, p.ID, u)
		require.NoError(t, err)
		assert.Empty(t, p.Likes)
		assert.Equal(t, 0, p.LikesCount())

		r, err := s.Append(ctx, p.ID, v, "nice", models.AuthorSnapshot{Username: "vee"})
		require.NoError(t, err)
		assert.Equal(t, v, r.AuthorID)
		assert.Equal(t, "nice", r.Text)

		got, err := s.GetByID(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, got.Replies, 1)
		assert.Equal(t, "nice", got.Replies[0].Text)
		assert.Equal(t, "vee", got.Replies[0].AuthorUsername)

		err = s.Delete(ctx, p.ID, v)
		assert.ErrorIs(t, err, ErrUnauthorized)
		_, err = s.GetByID(ctx, p.ID)
		require.NoError(t, err)

		require.NoError(t, s.Delete(ctx, p.ID, author))
		_, err = s.GetByID(ctx, p.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		assert.ErrorIs(t, s.Delete(ctx, p.ID, author), ErrNotFound)
	})

	t.Run("toggle like on missing post", func(t *testing.T) {
		s := open(t)
		_, err := s.ToggleLike(context.Background(), primitive.NewObjectID(), primitive.NewObjectID())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("concurrent likes are not lost", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		p, err := s.Create(ctx, primitive.NewObjectID(), "popular", "")
		require.NoError(t, err)

		const n = 20
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.ToggleLike(ctx, p.ID, primitive.NewObjectID())
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		got, err := s.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, n, got.LikesCount())
	})

	t.Run("reply length bounds", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		p, err := s.Create(ctx, primitive.NewObjectID(), "post", "")
		require.NoError(t, err)
		author := primitive.NewObjectID()

		_, err = s.Append(ctx, p.ID, author, "", models.AuthorSnapshot{})
		assert.True(t, IsValidationError(err))
		_, err = s.Append(ctx, p.ID, author, strings.Repeat("r", 301), models.AuthorSnapshot{})
		assert.True(t, IsValidationError(err))
		_, err = s.Append(ctx, p.ID, author, strings.Repeat("r", 300), models.AuthorSnapshot{})
		assert.NoError(t, err)

		got, err := s.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Len(t, got.Replies, 1)
	})

	t.Run("append to missing post", func(t *testing.T) {
		s := open(t)
		_, err := s.Append(context.Background(), primitive.NewObjectID(), primitive.NewObjectID(), "hi", models.AuthorSnapshot{})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("replies keep insertion order", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		p, err := s.Create(ctx, primitive.NewObjectID(), "thread", "")
		require.NoError(t, err)

		for _, text := range []string{"A", "B", "C"} {
			_, err := s.Append(ctx, p.ID, primitive.NewObjectID(), text, models.AuthorSnapshot{})
			require.NoError(t, err)
		}

		got, err := s.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B", "C"}, replyTexts(got))
	})

	t.Run("remove reply authorization and order", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		postAuthor, a, b, stranger := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
		p, err := s.Create(ctx, postAuthor, "thread", "")
		require.NoError(t, err)

		ra, err := s.Append(ctx, p.ID, a, "A", models.AuthorSnapshot{})
		require.NoError(t, err)
		rb, err := s.Append(ctx, p.ID, b, "B", models.AuthorSnapshot{})
		require.NoError(t, err)
		_, err = s.Append(ctx, p.ID, a, "C", models.AuthorSnapshot{})
		require.NoError(t, err)

		assert.ErrorIs(t, s.Remove(ctx, p.ID, rb.ID, stranger), ErrUnauthorized)
		assert.ErrorIs(t, s.Remove(ctx, p.ID, rb.ID, a), ErrUnauthorized)
		assert.ErrorIs(t, s.Remove(ctx, p.ID, primitive.NewObjectID(), a), ErrNotFound)
		assert.ErrorIs(t, s.Remove(ctx, primitive.NewObjectID(), rb.ID, b), ErrNotFound)

		require.NoError(t, s.Remove(ctx, p.ID, rb.ID, b))
		got, err := s.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "C"}, replyTexts(got))

		require.NoError(t, s.Remove(ctx, p.ID, ra.ID, postAuthor))
		got, err = s.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"C"}, replyTexts(got))
	})

	t.Run("list by author newest first", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		author, other := primitive.NewObjectID(), primitive.NewObjectID()
		for _, text := range []string{"one", "two", "three"} {
			_, err := s.Create(ctx, author, text, "")
			require.NoError(t, err)
			time.Sleep(2 * time.Millisecond)
		}
		_, err := s.Create(ctx, other, "elsewhere", "")
		require.NoError(t, err)

		posts, err := s.ListByAuthor(ctx, author)
		require.NoError(t, err)
		assert.Equal(t, []string{"three", "two", "one"}, postTexts(posts))
	})

	t.Run("feed pages by cursor", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		a, b, c := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
		for i, author := range []primitive.ObjectID{a, b, c, a, b} {
			_, err := s.Create(ctx, author, string(rune('1'+i)), "")
			require.NoError(t, err)
			time.Sleep(2 * time.Millisecond)
		}

		page, err := s.ListFeed(ctx, []primitive.ObjectID{a, b}, FeedQuery{Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, []string{"5", "4"}, postTexts(page))

		page, err = s.ListFeed(ctx, []primitive.ObjectID{a, b}, FeedQuery{Limit: 2, Before: CursorFor(&page[1])})
		require.NoError(t, err)
		assert.Equal(t, []string{"2", "1"}, postTexts(page))

		page, err = s.ListFeed(ctx, []primitive.ObjectID{a, b}, FeedQuery{Limit: 2, Before: CursorFor(&page[1])})
		require.NoError(t, err)
		assert.Empty(t, page)

		page, err = s.ListFeed(ctx, nil, FeedQuery{Limit: 10})
		require.NoError(t, err)
		assert.Empty(t, page)
	})
}

func replyTexts(p *models.Post) []string {
	out := make([]string, 0, len(p.Replies))
	for _, r := range p.Replies {
		out = append(out, r.Text)
	}
	return out
}

func postTexts(posts []models.Post) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.Text)
	}
	return out
}
