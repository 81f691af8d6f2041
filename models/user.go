package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// User is owned by the accounts service. This module only reads it: the
// username and picture feed reply snapshots, Following scopes the feed.
type User struct {
	ID         primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Username   string               `bson:"username" json:"username"`
	Name       string               `bson:"name" json:"name"`
	ProfilePic string               `bson:"profilePic" json:"profilePic"`
	Following  []primitive.ObjectID `bson:"following" json:"following"`
}

func (u *User) Snapshot() AuthorSnapshot {
	return AuthorSnapshot{
		Username:   u.Username,
		ProfilePic: u.ProfilePic,
	}
}
