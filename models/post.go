package models

import (
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// The validate tags below repeat these limits; keep them in step.
const (
	MaxPostTextLength  = 500
	MaxReplyTextLength = 300
)

// Post is the aggregate root. Replies are embedded and live and die with it.
type Post struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	AuthorID  primitive.ObjectID   `bson:"postedBy" json:"authorId"`
	Text      string               `bson:"text" json:"text" validate:"required_without=Image,max=500"`
	Image     string               `bson:"img" json:"image"`
	Likes     []primitive.ObjectID `bson:"likes" json:"likes"`
	Replies   []Reply              `bson:"replies" json:"replies"`
	CreatedAt time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time            `bson:"updatedAt" json:"updatedAt"`
}

type Reply struct {
	ID               primitive.ObjectID `bson:"_id" json:"id"`
	AuthorID         primitive.ObjectID `bson:"userId" json:"authorId"`
	Text             string             `bson:"text" json:"text" validate:"required,max=300"`
	AuthorProfilePic string             `bson:"userProfilePic" json:"authorProfilePic"`
	AuthorUsername   string             `bson:"username" json:"authorUsername"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// AuthorSnapshot is copied into a reply when it is written and never refreshed.
type AuthorSnapshot struct {
	Username   string
	ProfilePic string
}

// LikesCount is derived from Likes on every call.
func (p *Post) LikesCount() int {
	return len(p.Likes)
}

// LikedBy reports whether userID is in the post's likes.
func (p *Post) LikedBy(userID primitive.ObjectID) bool {
	for _, id := range p.Likes {
		if id == userID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers cannot alias stored slices.
func (p *Post) Clone() *Post {
	cp := *p
	cp.Likes = append([]primitive.ObjectID(nil), p.Likes...)
	cp.Replies = append([]Reply(nil), p.Replies...)
	return &cp
}

type postJSON struct {
	ID         primitive.ObjectID   `json:"id"`
	AuthorID   primitive.ObjectID   `json:"authorId"`
	Text       string               `json:"text"`
	Image      string               `json:"image"`
	Likes      []primitive.ObjectID `json:"likes"`
	LikesCount int                  `json:"likesCount"`
	Replies    []Reply              `json:"replies"`
	CreatedAt  time.Time            `json:"createdAt"`
	UpdatedAt  time.Time            `json:"updatedAt"`
}

func (p Post) MarshalJSON() ([]byte, error) {
	out := postJSON{
		ID:         p.ID,
		AuthorID:   p.AuthorID,
		Text:       p.Text,
		Image:      p.Image,
		Likes:      p.Likes,
		LikesCount: len(p.Likes),
		Replies:    p.Replies,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
	if out.Likes == nil {
		out.Likes = []primitive.ObjectID{}
	}
	if out.Replies == nil {
		out.Replies = []Reply{}
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts the wire shape produced by MarshalJSON. likesCount is
// ignored on input; it is always recomputed from likes.
func (p *Post) UnmarshalJSON(data []byte) error {
	var in postJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*p = Post{
		ID:        in.ID,
		AuthorID:  in.AuthorID,
		Text:      in.Text,
		Image:     in.Image,
		Likes:     in.Likes,
		Replies:   in.Replies,
		CreatedAt: in.CreatedAt,
		UpdatedAt: in.UpdatedAt,
	}
	return nil
}
