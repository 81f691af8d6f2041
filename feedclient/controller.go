package feedclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"threads/models"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeveritySuccess Severity = "success"
	SeverityInfo    Severity = "info"
)

// Notifier shows a user visible message. It is called with the controller
// lock held and must not call back into the Controller.
type Notifier interface {
	Notify(kind, message string, severity Severity)
}

// Navigator moves the view elsewhere, e.g. after the current post is deleted.
// Same locking rule as Notifier.
type Navigator interface {
	Navigate(path string)
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, string, Severity) {}

type nopNavigator struct{}

func (nopNavigator) Navigate(string) {}

var ErrClosed = errors.New("feedclient: controller closed")

const networkFailure = "Network request failed"

// ResponseError is a non-2xx status or an error body returned by the API.
type ResponseError struct {
	Status  int
	Message string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("feedclient: %d %s", e.Status, e.Message)
}

func responseError(resp *response) *ResponseError {
	msg := ErrorText(resp.body)
	if msg == "" {
		msg = fmt.Sprintf("Request failed with status %d", resp.status)
	}
	return &ResponseError{Status: resp.status, Message: msg}
}

// State is a copy of the controller's current post list.
type State struct {
	Items   []models.Post
	Loading bool
}

// Controller owns one logical post list and the single retrieval feeding it.
// Starting a retrieval cancels the previous one; a result is applied only if
// its generation is still current and the controller has not been closed.
type Controller struct {
	client    *Client
	notifier  Notifier
	navigator Navigator

	mu      sync.Mutex
	items   []models.Post
	loading bool
	gen     uint64
	cancel  context.CancelFunc
	closed  bool
}

func NewController(client *Client, notifier Notifier, navigator Navigator) *Controller {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if navigator == nil {
		navigator = nopNavigator{}
	}
	return &Controller{client: client, notifier: notifier, navigator: navigator, items: []models.Post{}}
}

func (c *Controller) LoadFeed(ctx context.Context) error {
	return c.load(ctx, feedPath, Normalize)
}

func (c *Controller) LoadPost(ctx context.Context, id string) error {
	return c.load(ctx, postPath(id), NormalizeSingle)
}

func (c *Controller) LoadUserPosts(ctx context.Context, username string) error {
	return c.load(ctx, userPostsPath(username), Normalize)
}

// load returns the context error when the retrieval was superseded, closed or
// cancelled by the caller. None of those touch state or notify.
func (c *Controller) load(ctx context.Context, path string, normalize func([]byte) ([]models.Post, Shape)) error {
	ctx, gen, err := c.begin(ctx)
	if err != nil {
		return err
	}

	resp, err := c.client.get(ctx, path)
	if err != nil {
		if cancelled(ctx, err) {
			return canceledErr(ctx)
		}
		if !c.commit(gen, nil, networkFailure) {
			return canceledErr(ctx)
		}
		return err
	}

	if !resp.ok() {
		rerr := responseError(resp)
		if !c.commit(gen, nil, rerr.Message) {
			return canceledErr(ctx)
		}
		return rerr
	}

	posts, shape := normalize(resp.body)
	if shape == ShapeError {
		rerr := &ResponseError{Status: resp.status, Message: ErrorText(resp.body)}
		if !c.commit(gen, nil, rerr.Message) {
			return canceledErr(ctx)
		}
		return rerr
	}

	if !c.commit(gen, posts, "") {
		return canceledErr(ctx)
	}
	return nil
}

func (c *Controller) begin(parent context.Context) (context.Context, uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, 0, ErrClosed
	}
	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	c.cancel = cancel
	c.gen++
	c.items = []models.Post{}
	c.loading = true
	return ctx, c.gen, nil
}

// commit applies a finished retrieval. A non-empty failure leaves the list
// cleared and raises one error notification.
func (c *Controller) commit(gen uint64, posts []models.Post, failure string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || gen != c.gen {
		return false
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.loading = false
	if failure != "" {
		c.items = []models.Post{}
		c.notifier.Notify("Error", failure, SeverityError)
		return true
	}
	if posts == nil {
		posts = []models.Post{}
	}
	c.items = posts
	return true
}

// DeletePost deletes a post and drops it from the list without refetching.
// On success the view is sent to the author's profile, or home when the author
// is unknown.
func (c *Controller) DeletePost(ctx context.Context, postID, authorUsername string) error {
	if c.isClosed() {
		return ErrClosed
	}

	resp, err := c.client.send(ctx, http.MethodDelete, postPath(postID))

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if err != nil {
		if !cancelled(ctx, err) {
			c.notifier.Notify("Error", networkFailure, SeverityError)
		}
		return err
	}
	if !resp.ok() {
		rerr := responseError(resp)
		c.notifier.Notify("Error", rerr.Message, SeverityError)
		return rerr
	}
	if msg := errorField(resp.body); msg != "" {
		rerr := &ResponseError{Status: resp.status, Message: msg}
		c.notifier.Notify("Error", rerr.Message, SeverityError)
		return rerr
	}

	c.removeLocked(postID)
	c.notifier.Notify("Success", "Post deleted", SeveritySuccess)
	if authorUsername != "" {
		c.navigator.Navigate("/" + authorUsername)
	} else {
		c.navigator.Navigate("/")
	}
	return nil
}

// ToggleLike flips the viewer's like on a post and swaps the server's copy
// into the list.
func (c *Controller) ToggleLike(ctx context.Context, postID string) (*models.Post, error) {
	if c.isClosed() {
		return nil, ErrClosed
	}

	resp, err := c.client.send(ctx, http.MethodPut, likePath(postID))

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	if err != nil {
		if !cancelled(ctx, err) {
			c.notifier.Notify("Error", networkFailure, SeverityError)
		}
		return nil, err
	}
	if !resp.ok() {
		rerr := responseError(resp)
		c.notifier.Notify("Error", rerr.Message, SeverityError)
		return nil, rerr
	}

	posts, shape := NormalizeSingle(resp.body)
	if shape != ShapeSingle {
		msg := errorField(resp.body)
		if msg == "" {
			msg = "Unexpected response"
		}
		rerr := &ResponseError{Status: resp.status, Message: msg}
		c.notifier.Notify("Error", rerr.Message, SeverityError)
		return nil, rerr
	}
	c.replaceLocked(posts[0])
	return posts[0].Clone(), nil
}

// UpdateItem replaces the list entry with the same id. It reports whether an
// entry was replaced.
func (c *Controller) UpdateItem(p models.Post) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	return c.replaceLocked(p)
}

func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := make([]models.Post, len(c.items))
	for i := range c.items {
		items[i] = *c.items[i].Clone()
	}
	return State{Items: items, Loading: c.loading}
}

// Close cancels any outstanding retrieval. Nothing started before or after
// Close mutates state or notifies once it returns.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Controller) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Controller) removeLocked(postID string) {
	for i := range c.items {
		if c.items[i].ID.Hex() != postID {
			continue
		}
		items := make([]models.Post, 0, len(c.items)-1)
		items = append(items, c.items[:i]...)
		c.items = append(items, c.items[i+1:]...)
		return
	}
}

func (c *Controller) replaceLocked(p models.Post) bool {
	for i := range c.items {
		if c.items[i].ID == p.ID {
			c.items[i] = *p.Clone()
			return true
		}
	}
	return false
}

func cancelled(ctx context.Context, err error) bool {
	return errors.Is(ctx.Err(), context.Canceled) || errors.Is(err, context.Canceled)
}

func canceledErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return context.Canceled
}
