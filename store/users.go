package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"threads/models"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserDirectory is the read side of the accounts collection.
type UserDirectory interface {
	ByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	ByUsername(ctx context.Context, username string) (*models.User, error)
	Following(ctx context.Context, id primitive.ObjectID) ([]primitive.ObjectID, error)
}

type MongoUsers struct {
	users *mongo.Collection
}

func NewMongoUsers(users *mongo.Collection) *MongoUsers {
	return &MongoUsers{users: users}
}

func (u *MongoUsers) ByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return u.findOne(ctx, bson.M{"_id": id})
}

func (u *MongoUsers) ByUsername(ctx context.Context, username string) (*models.User, error) {
	return u.findOne(ctx, bson.M{"username": strings.TrimSpace(username)})
}

func (u *MongoUsers) Following(ctx context.Context, id primitive.ObjectID) ([]primitive.ObjectID, error) {
	var doc struct {
		Following []primitive.ObjectID `bson:"following"`
	}
	opts := options.FindOne().SetProjection(bson.M{"following": 1})
	err := u.users.FindOne(ctx, bson.M{"_id": id}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find following for %s: %w", id.Hex(), err)
	}
	return doc.Following, nil
}

func (u *MongoUsers) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	err := u.users.FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

// CachedUsers keeps recently resolved profiles by id. Reply snapshots are
// allowed to be stale, so entries are never invalidated. Following lists are
// not cached because they scope the feed.
type CachedUsers struct {
	next UserDirectory
	byID *lru.Cache[primitive.ObjectID, models.User]
}

func NewCachedUsers(next UserDirectory, size int) (*CachedUsers, error) {
	cache, err := lru.New[primitive.ObjectID, models.User](size)
	if err != nil {
		return nil, fmt.Errorf("user cache: %w", err)
	}
	return &CachedUsers{next: next, byID: cache}, nil
}

func (c *CachedUsers) ByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	if u, ok := c.byID.Get(id); ok {
		return &u, nil
	}
	u, err := c.next.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.byID.Add(id, *u)
	return u, nil
}

func (c *CachedUsers) ByUsername(ctx context.Context, username string) (*models.User, error) {
	u, err := c.next.ByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	c.byID.Add(u.ID, *u)
	return u, nil
}

func (c *CachedUsers) Following(ctx context.Context, id primitive.ObjectID) ([]primitive.ObjectID, error) {
	return c.next.Following(ctx, id)
}

// MemoryUsers is an in-process UserDirectory.
type MemoryUsers struct {
	mu    sync.RWMutex
	users map[primitive.ObjectID]models.User
}

func NewMemoryUsers(users ...models.User) *MemoryUsers {
	m := &MemoryUsers{users: make(map[primitive.ObjectID]models.User)}
	for _, u := range users {
		m.Put(u)
	}
	return m
}

func (m *MemoryUsers) Put(u models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

func (m *MemoryUsers) ByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *MemoryUsers) ByUsername(ctx context.Context, username string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	username = strings.TrimSpace(username)
	for _, u := range m.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryUsers) Following(ctx context.Context, id primitive.ObjectID) ([]primitive.ObjectID, error) {
	u, err := m.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return append([]primitive.ObjectID(nil), u.Following...), nil
}
