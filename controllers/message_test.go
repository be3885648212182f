package controllers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meinhoongagan/homeservice-app/account"
	"github.com/meinhoongagan/homeservice-app/messaging"
	"github.com/meinhoongagan/homeservice-app/middleware"
	"github.com/meinhoongagan/homeservice-app/models"
	"github.com/meinhoongagan/homeservice-app/session"
	"github.com/meinhoongagan/homeservice-app/store"
	"github.com/meinhoongagan/homeservice-app/utils"
)

// countingStore tracks how many change feeds are open.
type countingStore struct {
	store.Store
	open atomic.Int64
}

func (c *countingStore) Changes(collection string) (<-chan struct{}, func()) {
	ch, stop := c.Store.Changes(collection)
	c.open.Add(1)
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.open.Add(-1)
			stop()
		})
	}
}

type streamServer struct {
	base  string
	docs  *countingStore
	users map[string]*models.User
	token map[string]string
}

func newStreamServer(t *testing.T) *streamServer {
	t.Helper()
	ctx := context.Background()
	docs := &countingStore{Store: store.NewMemory(nil)}
	sessions := session.NewMemoryStore()
	tokens := account.NewTokenIssuer("test-secret", time.Hour)
	accounts := account.NewService(docs, sessions, tokens, utils.NoUploader{})

	srv := &streamServer{docs: docs, users: map[string]*models.User{}, token: map[string]string{}}
	for _, u := range []struct {
		name, email string
		role        models.Role
	}{
		{"Ravi", "ravi@example.com", models.RoleProvider},
		{"Ana", "ana@example.com", models.RoleCustomer},
	} {
		user, err := accounts.Register(ctx, account.RegisterInput{Name: u.name, Email: u.email, Password: "secret123", Role: u.role})
		require.NoError(t, err)
		res, err := accounts.Login(ctx, session.New(), u.email, "secret123")
		require.NoError(t, err)
		srv.users[u.name] = user
		srv.token[u.name] = res.Token
	}

	h := NewMessageController(messaging.NewChannel(docs))
	h.heartbeat = 20 * time.Millisecond
	protected := middleware.Protected(tokens, sessions)
	app := fiber.New()
	app.Get("/messages/:userId/stream", protected, h.Stream)
	app.Post("/messages/:userId", protected, h.SendMessage)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go app.Listener(ln)
	t.Cleanup(func() { _ = app.ShutdownWithTimeout(time.Second) })
	srv.base = "http://" + ln.Addr().String()
	return srv
}

// readSnapshots decodes every "snapshot" event on body until it ends.
func readSnapshots(body *bufio.Reader) <-chan []models.Message {
	out := make(chan []models.Message, 10)
	go func() {
		defer close(out)
		event := ""
		for {
			line, err := body.ReadString('\n')
			if err != nil {
				return
			}
			line = strings.TrimRight(line, "\r\n")
			switch {
			case strings.HasPrefix(line, "event: "):
				event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: ") && event == "snapshot":
				var msgs []models.Message
				if json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &msgs) == nil {
					out <- msgs
				}
			case line == "":
				event = ""
			}
		}
	}()
	return out
}

func nextSnapshot(t *testing.T, ch <-chan []models.Message) []models.Message {
	t.Helper()
	select {
	case msgs, ok := <-ch:
		require.True(t, ok, "stream ended")
		return msgs
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot received")
		return nil
	}
}

func TestStream_DeliversSnapshots(t *testing.T) {
	srv := newStreamServer(t)
	ravi, ana := srv.users["Ravi"], srv.users["Ana"]

	req, err := http.NewRequest(http.MethodGet, srv.base+"/messages/"+ana.ID+"/stream", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+srv.token["Ravi"])
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	snapshots := readSnapshots(bufio.NewReader(resp.Body))
	assert.Empty(t, nextSnapshot(t, snapshots))
	assert.Equal(t, int64(1), srv.docs.open.Load())

	body, err := json.Marshal(fiber.Map{"message": "hello"})
	require.NoError(t, err)
	send, err := http.NewRequest(http.MethodPost, srv.base+"/messages/"+ravi.ID, bytes.NewReader(body))
	require.NoError(t, err)
	send.Header.Set("Content-Type", "application/json")
	send.Header.Set("Authorization", "Bearer "+srv.token["Ana"])
	sent, err := http.DefaultClient.Do(send)
	require.NoError(t, err)
	sent.Body.Close()
	require.Equal(t, http.StatusCreated, sent.StatusCode)

	msgs := nextSnapshot(t, snapshots)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Message)
	assert.Equal(t, ana.ID, msgs[0].SenderID)
}

func TestStream_ClosesSubscriptionWhenClientLeaves(t *testing.T) {
	srv := newStreamServer(t)
	ana := srv.users["Ana"]

	req, err := http.NewRequest(http.MethodGet, srv.base+"/messages/"+ana.ID+"/stream", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+srv.token["Ravi"])
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	snapshots := readSnapshots(bufio.NewReader(resp.Body))
	nextSnapshot(t, snapshots)
	require.Equal(t, int64(1), srv.docs.open.Load())

	resp.Body.Close()
	assert.Eventually(t, func() bool { return srv.docs.open.Load() == 0 }, 3*time.Second, 10*time.Millisecond,
		"subscription should close once the stream ends")
}

func TestStream_RejectsMissingCounterpart(t *testing.T) {
	srv := newStreamServer(t)

	req, err := http.NewRequest(http.MethodGet, srv.base+"/messages/"+srv.users["Ravi"].ID+"/stream", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+srv.token["Ravi"])
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, int64(0), srv.docs.open.Load())
}
