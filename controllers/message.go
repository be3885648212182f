package controllers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/meinhoongagan/homeservice-app/messaging"
	"github.com/meinhoongagan/homeservice-app/middleware"
	"github.com/meinhoongagan/homeservice-app/models"
)

// heartbeat keeps idle proxies from dropping the event stream.
const heartbeat = 25 * time.Second

type MessageController struct {
	channel   *messaging.Channel
	heartbeat time.Duration
}

func NewMessageController(channel *messaging.Channel) *MessageController {
	return &MessageController{channel: channel, heartbeat: heartbeat}
}

func (h *MessageController) GetTranscript(c *fiber.Ctx) error {
	msgs, err := h.channel.Transcript(c.UserContext(), middleware.Session(c), c.Params("userId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(msgs)
}

func (h *MessageController) SendMessage(c *fiber.Ctx) error {
	var input struct {
		Message string `json:"message"`
	}
	if err := c.BodyParser(&input); err != nil {
		return badBody(c)
	}
	id, err := h.channel.Send(c.UserContext(), middleware.Session(c), c.Params("userId"), input.Message)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
}

func (h *MessageController) MarkSeen(c *fiber.Ctx) error {
	n, err := h.channel.MarkSeen(c.UserContext(), middleware.Session(c), c.Params("userId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"updated": n})
}

func (h *MessageController) GetConversations(c *fiber.Ctx) error {
	convs, err := h.channel.Conversations(c.UserContext(), middleware.Session(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(convs)
}

func (h *MessageController) GetOnlineUsers(c *fiber.Ctx) error {
	users, err := h.channel.OnlineUsers(c.UserContext(), middleware.Session(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(users)
}

// Stream pushes every transcript snapshot as a server-sent event until the
// client goes away.
func (h *MessageController) Stream(c *fiber.Ctx) error {
	sess := middleware.Session(c)
	other := c.Params("userId")

	// only the latest snapshot matters, so a slow client skips stale ones
	snapshots := make(chan []models.Message, 1)
	ctx, cancel := context.WithCancel(context.Background())
	sub, err := h.channel.Subscribe(ctx, sess, other, func(msgs []models.Message, err error) {
		if err != nil {
			log.Printf("message stream %s: %v", other, err)
			return
		}
		select {
		case <-snapshots:
		default:
		}
		snapshots <- msgs
	})
	if err != nil {
		cancel()
		return respondError(c, err)
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()
		defer sub.Close()

		ticker := time.NewTicker(h.heartbeat)
		defer ticker.Stop()
		for {
			select {
			case msgs := <-snapshots:
				if msgs == nil {
					msgs = []models.Message{}
				}
				data, err := json.Marshal(msgs)
				if err != nil {
					log.Printf("message stream %s: %v", other, err)
					return
				}
				fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data)
			case <-ticker.C:
				fmt.Fprint(w, ": ping\n\n")
			case <-sub.Done():
				return
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	}))
	return nil
}
