package stream

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/avelichko/taskdeck/backend/internal/board/guard"
	"github.com/avelichko/taskdeck/backend/internal/common/constants"
	commonerrors "github.com/avelichko/taskdeck/backend/internal/common/errors"
	commonhttp "github.com/avelichko/taskdeck/backend/internal/common/http"
	"github.com/avelichko/taskdeck/backend/internal/common/logger"
)

// Client is one websocket subscription to one board.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	boardID int64
}

// The stream is push only; inbound frames are drained solely to service
// pong handling and detect disconnects.
func (c *Client) readPump() {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(constants.DefaultMaxRequestSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(constants.WebSocketPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(constants.WebSocketPongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(constants.WebSocketPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(constants.WebSocketWriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(constants.WebSocketWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Handler upgrades guarded requests onto the hub.
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	errors   *commonhttp.ErrorHandler
	log      *logger.Logger
}

func NewHandler(hub *Hub, errors *commonhttp.ErrorHandler, log *logger.Logger) *Handler {
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  constants.WebSocketReadBufferSize,
			WriteBufferSize: constants.WebSocketWriteBufferSize,
		},
		errors: errors,
		log:    log,
	}
}

// ServeWS runs behind the session resolver and the access guard, so both
// identity and board membership are already established.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	boardID, ok := guard.BoardIDFromContext(r.Context())
	if !ok {
		h.errors.HandleError(w, r, commonerrors.ErrMissingBoardID)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithFields(r.Context(), logger.Fields{
			"board_id": boardID,
		}).Warnf("websocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:     h.hub,
		conn:    conn,
		send:    make(chan []byte, constants.WebSocketSendBufSize),
		boardID: boardID,
	}

	if !h.hub.join(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
