package store

import (
	"context"
	"errors"
	"fmt"

	"threads/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo stores posts as single documents in a collection. Replies are
// embedded, so every mutation below touches exactly one document and relies on
// Mongo's per-document atomicity instead of read-modify-write.
type Mongo struct {
	posts *mongo.Collection
}

var (
	_ PostStore  = (*Mongo)(nil)
	_ ReplyStore = (*Mongo)(nil)
)

func NewMongo(posts *mongo.Collection) *Mongo {
	return &Mongo{posts: posts}
}

var newestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}

func (s *Mongo) Create(ctx context.Context, authorID primitive.ObjectID, text, image string) (*models.Post, error) {
	p, err := newPost(authorID, text, image)
	if err != nil {
		return nil, err
	}
	if _, err := s.posts.InsertOne(ctx, p); err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}
	return p, nil
}

func (s *Mongo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	var p models.Post
	err := s.posts.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find post %s: %w", id.Hex(), err)
	}
	return &p, nil
}

func (s *Mongo) ListByAuthor(ctx context.Context, authorID primitive.ObjectID) ([]models.Post, error) {
	opts := options.Find().SetSort(newestFirst)
	return s.find(ctx, bson.M{"postedBy": authorID}, opts)
}

func (s *Mongo) ListFeed(ctx context.Context, authorIDs []primitive.ObjectID, q FeedQuery) ([]models.Post, error) {
	if len(authorIDs) == 0 {
		return []models.Post{}, nil
	}

	filter := bson.M{"postedBy": bson.M{"$in": authorIDs}}
	if q.Before != nil {
		filter["$or"] = bson.A{
			bson.M{"createdAt": bson.M{"$lt": q.Before.CreatedAt}},
			bson.M{"createdAt": q.Before.CreatedAt, "_id": bson.M{"$lt": q.Before.ID}},
		}
	}

	opts := options.Find().SetSort(newestFirst)
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	return s.find(ctx, filter, opts)
}

func (s *Mongo) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Post, error) {
	cursor, err := s.posts.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find posts: %w", err)
	}
	defer cursor.Close(ctx)

	posts := make([]models.Post, 0)
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, fmt.Errorf("decode posts: %w", err)
	}
	return posts, nil
}

// Delete removes the post only when requesterID owns it. The ownership check
// is part of the delete filter, so a stale caller-side check cannot matter.
func (s *Mongo) Delete(ctx context.Context, id, requesterID primitive.ObjectID) error {
	res, err := s.posts.DeleteOne(ctx, bson.M{"_id": id, "postedBy": requesterID})
	if err != nil {
		return fmt.Errorf("delete post %s: %w", id.Hex(), err)
	}
	if res.DeletedCount == 1 {
		return nil
	}
	return s.missingOr(ctx, id, ErrUnauthorized)
}

func (s *Mongo) ToggleLike(ctx context.Context, id, userID primitive.ObjectID) (*models.Post, error) {
	likes := bson.D{{Key: "$ifNull", Value: bson.A{"$likes", bson.A{}}}}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "likes", Value: bson.D{{Key: "$cond", Value: bson.D{
				{Key: "if", Value: bson.D{{Key: "$in", Value: bson.A{userID, likes}}}},
				{Key: "then", Value: bson.D{{Key: "$filter", Value: bson.D{
					{Key: "input", Value: likes},
					{Key: "cond", Value: bson.D{{Key: "$ne", Value: bson.A{"$$this", userID}}}},
				}}}},
				{Key: "else", Value: bson.D{{Key: "$concatArrays", Value: bson.A{likes, bson.A{userID}}}}},
			}}}},
			{Key: "updatedAt", Value: now()},
		}}},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var p models.Post
	err := s.posts.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("toggle like on %s: %w", id.Hex(), err)
	}
	return &p, nil
}

func (s *Mongo) Append(ctx context.Context, postID, authorID primitive.ObjectID, text string, author models.AuthorSnapshot) (*models.Reply, error) {
	r, err := newReply(authorID, text, author)
	if err != nil {
		return nil, err
	}

	update := bson.M{
		"$push": bson.M{"replies": r},
		"$set":  bson.M{"updatedAt": r.CreatedAt},
	}
	res, err := s.posts.UpdateOne(ctx, bson.M{"_id": postID}, update)
	if err != nil {
		return nil, fmt.Errorf("append reply to %s: %w", postID.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return nil, ErrNotFound
	}
	return r, nil
}

// Remove pulls a reply when the requester wrote it or owns the post.
func (s *Mongo) Remove(ctx context.Context, postID, replyID, requesterID primitive.ObjectID) error {
	filter := bson.M{
		"_id": postID,
		"$or": bson.A{
			bson.M{"postedBy": requesterID, "replies._id": replyID},
			bson.M{"replies": bson.M{"$elemMatch": bson.M{"_id": replyID, "userId": requesterID}}},
		},
	}
	update := bson.M{
		"$pull": bson.M{"replies": bson.M{"_id": replyID}},
		"$set":  bson.M{"updatedAt": now()},
	}
	res, err := s.posts.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("remove reply %s: %w", replyID.Hex(), err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	n, err := s.posts.CountDocuments(ctx, bson.M{"_id": postID, "replies._id": replyID})
	if err != nil {
		return fmt.Errorf("check reply %s: %w", replyID.Hex(), err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrUnauthorized
}

// missingOr resolves a zero-match conditional write: ErrNotFound when the post
// is gone, otherwise the supplied error.
func (s *Mongo) missingOr(ctx context.Context, id primitive.ObjectID, otherwise error) error {
	n, err := s.posts.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("check post %s: %w", id.Hex(), err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return otherwise
}
