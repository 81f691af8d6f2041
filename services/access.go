package services

import (
	"context"
	"errors"
	"fmt"

	"threads/models"
	"threads/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrUnknownUser is returned when the acting user has no profile. It also
// matches store.ErrNotFound.
var ErrUnknownUser = errors.New("unknown user")

// UserResolver looks up author metadata. Reply snapshots are copied from it.
type UserResolver interface {
	ByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	ByUsername(ctx context.Context, username string) (*models.User, error)
}

// EventPublisher receives an event after each successful mutation.
type EventPublisher interface {
	Publish(event models.PostEvent)
}

type noopPublisher struct{}

func (noopPublisher) Publish(models.PostEvent) {}

// PostAccessService covers single-post reads, per-user listings and every
// post mutation. Authorization is always decided by the store.
type PostAccessService struct {
	posts   store.PostStore
	replies store.ReplyStore
	users   UserResolver
	events  EventPublisher
}

func NewPostAccessService(posts store.PostStore, replies store.ReplyStore, users UserResolver, events EventPublisher) *PostAccessService {
	if events == nil {
		events = noopPublisher{}
	}
	return &PostAccessService{
		posts:   posts,
		replies: replies,
		users:   users,
		events:  events,
	}
}

func (s *PostAccessService) CreatePost(ctx context.Context, authorID primitive.ObjectID, text, image string) (*models.Post, error) {
	p, err := s.posts.Create(ctx, authorID, text, image)
	if err != nil {
		return nil, err
	}
	s.publish(models.EventPostCreated, p.ID, authorID, p)
	return p, nil
}

func (s *PostAccessService) GetPost(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	return s.posts.GetByID(ctx, id)
}

// ListUserPosts returns the posts of the user with the given username, newest
// first. An unknown username is store.ErrNotFound.
func (s *PostAccessService) ListUserPosts(ctx context.Context, username string) ([]models.Post, error) {
	user, err := s.users.ByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.posts.ListByAuthor(ctx, user.ID)
}

// DeletePost deletes a post owned by requesterID. Ownership is checked by the
// store's conditional delete, whatever the caller checked beforehand.
func (s *PostAccessService) DeletePost(ctx context.Context, postID, requesterID primitive.ObjectID) error {
	if err := s.posts.Delete(ctx, postID, requesterID); err != nil {
		return err
	}
	s.publish(models.EventPostDeleted, postID, requesterID, nil)
	return nil
}

func (s *PostAccessService) ToggleLike(ctx context.Context, postID, userID primitive.ObjectID) (*models.Post, error) {
	p, err := s.posts.ToggleLike(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	s.publish(models.EventPostLiked, postID, userID, map[string]any{
		"likesCount": p.LikesCount(),
		"liked":      p.LikedBy(userID),
	})
	return p, nil
}

// ReplyToPost appends a reply carrying a snapshot of the author's current
// username and picture.
func (s *PostAccessService) ReplyToPost(ctx context.Context, postID, userID primitive.ObjectID, text string) (*models.Reply, error) {
	author, err := s.users.ByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrUnknownUser, err)
		}
		return nil, fmt.Errorf("resolve reply author: %w", err)
	}
	r, err := s.replies.Append(ctx, postID, userID, text, author.Snapshot())
	if err != nil {
		return nil, err
	}
	s.publish(models.EventReplyAdded, postID, userID, r)
	return r, nil
}

func (s *PostAccessService) DeleteReply(ctx context.Context, postID, replyID, requesterID primitive.ObjectID) error {
	if err := s.replies.Remove(ctx, postID, replyID, requesterID); err != nil {
		return err
	}
	s.publish(models.EventReplyDeleted, postID, requesterID, map[string]any{"replyId": replyID.Hex()})
	return nil
}

func (s *PostAccessService) publish(kind string, postID, actorID primitive.ObjectID, payload any) {
	s.events.Publish(models.PostEvent{
		Type:    kind,
		PostID:  postID.Hex(),
		ActorID: actorID.Hex(),
		Payload: payload,
	})
}
