package models

// Event types broadcast after a successful post mutation.
const (
	EventPostCreated  = "post_created"
	EventPostDeleted  = "post_deleted"
	EventPostLiked    = "post_liked"
	EventReplyAdded   = "reply_added"
	EventReplyDeleted = "reply_deleted"
)

type PostEvent struct {
	Type    string `json:"type"`
	PostID  string `json:"postId"`
	ActorID string `json:"actorId"`
	Payload any    `json:"payload,omitempty"`
}
