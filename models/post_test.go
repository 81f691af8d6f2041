package models

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestValidatePost(t *testing.T) {
	author := primitive.NewObjectID()

	tests := []struct {
		name      string
		post      Post
		wantField string
		wantRule  string
	}{
		{name: "text only", post: Post{AuthorID: author, Text: "hello"}},
		{name: "image only", post: Post{AuthorID: author, Image: "https://img.example/1.png"}},
		{name: "text at limit", post: Post{AuthorID: author, Text: strings.Repeat("a", 500)}},
		{name: "multibyte text at limit", post: Post{AuthorID: author, Text: strings.Repeat("é", 500)}},
		{name: "empty", post: Post{AuthorID: author}, wantField: "text", wantRule: "required_without"},
		{name: "whitespace only", post: Post{AuthorID: author, Text: "   ", Image: "  "}, wantField: "text", wantRule: "required_without"},
		{name: "text too long", post: Post{AuthorID: author, Text: strings.Repeat("a", 501)}, wantField: "text", wantRule: "max"},
		{name: "missing author", post: Post{Text: "hi"}, wantField: "authorId", wantRule: "required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.post
			NormalizePost(&p)
			err := ValidatePost(&p)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var fe *FieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.wantField, fe.Field)
			assert.Equal(t, tt.wantRule, fe.Rule)
		})
	}
}

func TestValidateReply(t *testing.T) {
	author := primitive.NewObjectID()

	tests := []struct {
		name    string
		text    string
		wantErr bool
	}{
		{name: "empty", text: "", wantErr: true},
		{name: "blank", text: "  \t ", wantErr: true},
		{name: "one char", text: "a"},
		{name: "at limit", text: strings.Repeat("a", 300)},
		{name: "over limit", text: strings.Repeat("a", 301), wantErr: true},
		{name: "padded at limit", text: "  " + strings.Repeat("a", 300) + "  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Reply{AuthorID: author, Text: tt.text}
			NormalizeReply(&r)
			err := ValidateReply(&r)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPostMarshalJSON_DerivesLikesCount(t *testing.T) {
	u1, u2 := primitive.NewObjectID(), primitive.NewObjectID()
	p := Post{
		ID:        primitive.NewObjectID(),
		AuthorID:  primitive.NewObjectID(),
		Text:      "hello",
		Likes:     []primitive.ObjectID{u1, u2},
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	raw, err := json.Marshal(p)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.EqualValues(t, 2, out["likesCount"])
	assert.Equal(t, []any{}, out["replies"])
	assert.NotContains(t, out, "__v")
	assert.Equal(t, p.ID.Hex(), out["id"])
}

func TestPostUnmarshalJSON_IgnoresLikesCount(t *testing.T) {
	u := primitive.NewObjectID()
	raw := `{"id":"` + primitive.NewObjectID().Hex() + `","text":"x","likes":["` + u.Hex() + `"],"likesCount":99}`

	var p Post
	require.NoError(t, json.Unmarshal([]byte(raw), &p))
	assert.Equal(t, 1, p.LikesCount())
	assert.True(t, p.LikedBy(u))
}

func TestPostClone_DoesNotAlias(t *testing.T) {
	p := &Post{Likes: []primitive.ObjectID{primitive.NewObjectID()}, Replies: []Reply{{Text: "a"}}}
	cp := p.Clone()
	cp.Likes[0] = primitive.NilObjectID
	cp.Replies[0].Text = "b"

	assert.NotEqual(t, primitive.NilObjectID, p.Likes[0])
	assert.Equal(t, "a", p.Replies[0].Text)
}

func TestValidateTagsMatchLimits(t *testing.T) {
	tests := []struct {
		typ   reflect.Type
		limit int
	}{
		{reflect.TypeOf(Post{}), MaxPostTextLength},
		{reflect.TypeOf(Reply{}), MaxReplyTextLength},
	}
	for _, tt := range tests {
		t.Run(tt.typ.Name(), func(t *testing.T) {
			field, ok := tt.typ.FieldByName("Text")
			require.True(t, ok)
			assert.Contains(t, strings.Split(field.Tag.Get("validate"), ","), "max="+strconv.Itoa(tt.limit))
		})
	}
}
