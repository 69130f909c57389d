package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"launchpad_backend/internal/logger"
	"launchpad_backend/pkg/apperrors"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMessage = 4096
)

// IncomingWSMessage is an admin action sent over the socket.
type IncomingWSMessage struct {
	Action   string `json:"action"` // approve, reject, resend
	TicketID string `json:"ticket_id"`
	Reason   string `json:"reason,omitempty"`
}

type ActionResult struct {
	Type     string              `json:"type"`
	Action   string              `json:"action"`
	TicketID string              `json:"ticket_id"`
	OK       bool                `json:"ok"`
	Error    *apperrors.AppError `json:"error,omitempty"`
}

type Client struct {
	ID   string // admin id
	Conn *websocket.Conn
	Send chan any
	Ctx  context.Context

	Manager *WebSocketManager
}

func (c *Client) trySend(message any) bool {
	select {
	case c.Send <- message:
		return true
	default:
		return false
	}
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.Manager.unregister <- c:
		case <-c.Manager.done:
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessage)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msgBytes, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("admin websocket read error", "admin_id", c.ID, "error", err)
			}
			return
		}

		var msg IncomingWSMessage
		if err := json.Unmarshal(msgBytes, &msg); err != nil {
			logger.Warn("admin websocket bad message", "admin_id", c.ID, "error", err)
			continue
		}
		c.handleMessage(msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(msg); err != nil {
				logger.Warn("admin websocket write error", "admin_id", c.ID, "error", err)
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Централизованный обработчик
func (c *Client) handleMessage(msg IncomingWSMessage) {
	console := c.Manager.console
	ctx := logger.WithUserID(c.Ctx, c.ID)

	var err error
	switch msg.Action {
	case "approve":
		_, err = console.Approve(ctx, msg.TicketID, c.ID)
	case "reject":
		if msg.Reason == "" {
			err = apperrors.NewBadRequestError("reason is required")
		} else {
			_, err = console.Reject(ctx, msg.TicketID, c.ID, msg.Reason)
		}
	case "resend":
		_, err = console.ResendDelivery(ctx, msg.TicketID, c.ID)
	default:
		err = apperrors.NewBadRequestError("unknown action " + msg.Action)
	}

	result := ActionResult{Type: MessageActionResult, Action: msg.Action, TicketID: msg.TicketID, OK: err == nil}
	if err != nil {
		appErr, ok := apperrors.AsAppError(err)
		if !ok {
			appErr = apperrors.InternalError(err)
		}
		result.Error = appErr
	}
	c.trySend(result)
}
