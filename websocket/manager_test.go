package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"threads/middleware"
	"threads/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_BroadcastsPostEvents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := NewManager()
	go manager.Start(ctx)

	r := gin.New()
	r.GET("/ws", func(c *gin.Context) { c.Set(middleware.UserIDKey, "viewer-1") }, Handler(manager))
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var welcome map[string]any
	require.NoError(t, conn.ReadJSON(&welcome))
	assert.Equal(t, "connected", welcome["type"])

	require.Eventually(t, func() bool { return manager.GetConnectedUsers() == 1 }, 2*time.Second, 10*time.Millisecond)

	manager.Publish(models.PostEvent{Type: models.EventPostDeleted, PostID: "p1", ActorID: "u1"})

	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var got models.PostEvent
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, models.EventPostDeleted, got.Type)
	assert.Equal(t, "p1", got.PostID)
}

func TestHandler_RequiresIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws", Handler(NewManager()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/ws", nil))
	assert.Equal(t, 401, w.Code)
}

func TestPublish_DoesNotBlockWithoutConsumer(t *testing.T) {
	m := NewManager()
	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			m.Publish(models.PostEvent{Type: models.EventPostLiked})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked")
	}
}
