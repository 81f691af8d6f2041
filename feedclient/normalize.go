package feedclient

import (
	"bytes"

	"threads/models"

	"github.com/goccy/go-json"
)

// Shape is the wire shape a response body was recognised as.
type Shape int

const (
	ShapeUnknown Shape = iota
	ShapeArray         // [post, ...]
	ShapeData          // {"data": [post, ...]}
	ShapePosts         // {"posts": [post, ...]}
	ShapePayload       // {"success": true, "payload": [post, ...]}
	ShapeSingle        // a bare post object
	ShapeError         // {"error": "..."} or {"message": "..."} without posts
)

func (s Shape) String() string {
	switch s {
	case ShapeArray:
		return "array"
	case ShapeData:
		return "data"
	case ShapePosts:
		return "posts"
	case ShapePayload:
		return "payload"
	case ShapeSingle:
		return "single"
	case ShapeError:
		return "error"
	}
	return "unknown"
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Posts   json.RawMessage `json:"posts"`
	Success bool            `json:"success"`
	Payload json.RawMessage `json:"payload"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
	ID      json.RawMessage `json:"id"`
}

// Normalize maps a list response onto the canonical post sequence. Anything
// it does not recognise yields an empty, non-nil slice and ShapeUnknown.
func Normalize(body []byte) ([]models.Post, Shape) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return []models.Post{}, ShapeUnknown
	}

	if body[0] == '[' {
		if posts, ok := decodeList(body); ok {
			return posts, ShapeArray
		}
		return []models.Post{}, ShapeUnknown
	}

	var env envelope
	if body[0] != '{' || json.Unmarshal(body, &env) != nil {
		return []models.Post{}, ShapeUnknown
	}

	if posts, ok := decodeList(env.Data); ok {
		return posts, ShapeData
	}
	if posts, ok := decodeList(env.Posts); ok {
		return posts, ShapePosts
	}
	if env.Success {
		if posts, ok := decodeList(env.Payload); ok {
			return posts, ShapePayload
		}
	}
	if env.Error != "" || env.Message != "" {
		return []models.Post{}, ShapeError
	}
	return []models.Post{}, ShapeUnknown
}

// NormalizeSingle maps a single-post response onto a one element sequence.
func NormalizeSingle(body []byte) ([]models.Post, Shape) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return Normalize(body)
	}

	var env envelope
	if json.Unmarshal(body, &env) != nil {
		return []models.Post{}, ShapeUnknown
	}
	if env.Error != "" {
		return []models.Post{}, ShapeError
	}
	if isPresent(env.ID) {
		var p models.Post
		if err := json.Unmarshal(body, &p); err == nil && !p.ID.IsZero() {
			return []models.Post{p}, ShapeSingle
		}
		return []models.Post{}, ShapeUnknown
	}
	return Normalize(body)
}

// ErrorText pulls a human readable message out of an error body.
func ErrorText(body []byte) string {
	var env envelope
	if json.Unmarshal(bytes.TrimSpace(body), &env) != nil {
		return ""
	}
	if env.Error != "" {
		return env.Error
	}
	return env.Message
}

// errorField returns only the error member of a body. Successful mutations
// answer with a message, so message alone does not mean failure.
func errorField(body []byte) string {
	var env envelope
	if json.Unmarshal(bytes.TrimSpace(body), &env) != nil {
		return ""
	}
	return env.Error
}

func decodeList(raw json.RawMessage) ([]models.Post, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, false
	}
	posts := make([]models.Post, 0)
	if err := json.Unmarshal(raw, &posts); err != nil {
		return nil, false
	}
	return posts, true
}

func isPresent(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}
