// Package messaging is the one-to-one chat between a customer and a provider.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/meinhoongagan/homeservice-app/models"
	"github.com/meinhoongagan/homeservice-app/session"
	"github.com/meinhoongagan/homeservice-app/store"
)

var ErrNoCounterpart = errors.New("choose who to chat with")

// Conversation is one row of the inbox.
type Conversation struct {
	UserID      string         `json:"userId"`
	Name        string         `json:"name"`
	Image       string         `json:"image"`
	IsOnline    bool           `json:"isOnline"`
	LastMessage models.Message `json:"lastMessage"`
	Unread      int            `json:"unread"`
}

type Channel struct {
	store store.Store
	now   func() time.Time
}

func NewChannel(s store.Store) *Channel {
	return &Channel{store: s, now: time.Now}
}

func (c *Channel) pair(sess *session.Session, other string) (session.Identity, error) {
	me, err := sess.Require()
	if err != nil {
		return session.Identity{}, err
	}
	if other == "" || other == me.UserID {
		return session.Identity{}, ErrNoCounterpart
	}
	return me, nil
}

func transcriptQuery(a, b string) store.Query {
	return store.Q(models.CollectionMessages,
		store.Where("conversationKey", store.OpEq, models.ConversationKey(a, b)),
	).Order("sentAt", false)
}

// Subscribe streams the conversation with other, oldest message first. The
// handler gets the whole transcript on start and after every change, empty
// transcripts included. Close the returned subscription to stop.
func (c *Channel) Subscribe(ctx context.Context, sess *session.Session, other string, handler func([]models.Message, error)) (*store.Subscription, error) {
	me, err := c.pair(sess, other)
	if err != nil {
		return nil, err
	}
	sub := store.Subscribe(ctx, c.store, transcriptQuery(me.UserID, other), func(docs []store.Document, err error) {
		if err != nil {
			handler(nil, err)
			return
		}
		handler(store.DecodeAll[models.Message](docs))
	})
	return sub, nil
}

// Transcript is a one-off read of the conversation with other.
func (c *Channel) Transcript(ctx context.Context, sess *session.Session, other string) ([]models.Message, error) {
	me, err := c.pair(sess, other)
	if err != nil {
		return nil, err
	}
	docs, err := c.store.Get(ctx, transcriptQuery(me.UserID, other))
	if err != nil {
		return nil, err
	}
	return store.DecodeAll[models.Message](docs)
}

// Send appends a message to the conversation with other. Subscribers see it
// through their next snapshot.
func (c *Channel) Send(ctx context.Context, sess *session.Session, other, text string) (string, error) {
	me, err := c.pair(sess, other)
	if err != nil {
		return "", err
	}
	msg, err := models.NewMessage(me.UserID, other, text, models.NewTimestamp(c.now()))
	if err != nil {
		return "", err
	}
	data, err := store.Encode(msg)
	if err != nil {
		return "", err
	}
	id, err := c.store.Add(ctx, models.CollectionMessages, data)
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}
	return id, nil
}

// MarkSeen flags every unseen message other sent to the signed-in user as seen.
func (c *Channel) MarkSeen(ctx context.Context, sess *session.Session, other string) (int, error) {
	me, err := c.pair(sess, other)
	if err != nil {
		return 0, err
	}
	n := 0
	err = c.store.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
		n = 0
		docs, err := tx.Get(ctx, store.Q(models.CollectionMessages,
			store.Where("conversationKey", store.OpEq, models.ConversationKey(me.UserID, other)),
			store.Where("senderId", store.OpEq, other),
			store.Where("seen", store.OpEq, false),
		))
		if err != nil {
			return err
		}
		for _, d := range docs {
			if err := tx.Update(ctx, models.CollectionMessages, d.ID, map[string]interface{}{"seen": true}); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Conversations lists everyone the signed-in user has exchanged messages
// with, most recent conversation first.
func (c *Channel) Conversations(ctx context.Context, sess *session.Session) ([]Conversation, error) {
	me, err := sess.Require()
	if err != nil {
		return nil, err
	}
	docs, err := c.store.Get(ctx, store.Q(models.CollectionMessages,
		store.Where("participants", store.OpArrayContains, me.UserID),
	).Order("sentAt", true))
	if err != nil {
		return nil, err
	}
	msgs, err := store.DecodeAll[models.Message](docs)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int)
	out := []Conversation{}
	var ids []string
	for _, m := range msgs {
		other := m.Counterpart(me.UserID)
		i, ok := index[other]
		if !ok {
			i = len(out)
			index[other] = i
			ids = append(ids, other)
			out = append(out, Conversation{UserID: other, LastMessage: m})
		}
		if m.SenderID == other && !m.Seen {
			out[i].Unread++
		}
	}
	if len(ids) == 0 {
		return out, nil
	}

	users, err := c.users(ctx, store.Where(store.DocumentID, store.OpIn, ids))
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if i, ok := index[u.ID]; ok {
			out[i].Name = u.Name
			out[i].Image = u.Image
			out[i].IsOnline = u.IsOnline
		}
	}
	return out, nil
}

// OnlineUsers lists the other users currently signed in.
func (c *Channel) OnlineUsers(ctx context.Context, sess *session.Session) ([]models.User, error) {
	me, err := sess.Require()
	if err != nil {
		return nil, err
	}
	users, err := c.users(ctx, store.Where("isOnline", store.OpEq, true))
	if err != nil {
		return nil, err
	}
	out := make([]models.User, 0, len(users))
	for _, u := range users {
		if u.ID != me.UserID && u.Role != models.RoleAdmin {
			out = append(out, u)
		}
	}
	return out, nil
}

func (c *Channel) users(ctx context.Context, filters ...store.Filter) ([]models.User, error) {
	docs, err := c.store.Get(ctx, store.Q(models.CollectionUsers, filters...))
	if err != nil {
		return nil, err
	}
	return store.DecodeAll[models.User](docs)
}
