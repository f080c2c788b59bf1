package stream

import (
	"encoding/json"
	"sync"

	"github.com/avelichko/taskdeck/backend/internal/common/logger"
	"github.com/avelichko/taskdeck/backend/internal/observability/metrics"
)

type boardMessage struct {
	boardID int64
	data    []byte
}

// Hub fans board events out to the websocket clients subscribed to each
// board. All membership checking happens before a client reaches the hub;
// the hub itself only routes.
type Hub struct {
	clients    map[int64]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan boardMessage
	done       chan struct{}
	once       sync.Once
	log        *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[int64]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan boardMessage, 64),
		done:       make(chan struct{}),
		log:        log,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.add(client)
		case client := <-h.unregister:
			h.remove(client)
		case msg := <-h.broadcast:
			h.deliver(msg)
		case <-h.done:
			return
		}
	}
}

func (h *Hub) Stop() {
	h.once.Do(func() { close(h.done) })
}

// Publish serializes the event and queues it for every client watching the
// board. Callers invoke it after their commit succeeds, never before.
func (h *Hub) Publish(boardID int64, event Event) {
	event.BoardID = boardID

	data, err := json.Marshal(event)
	if err != nil {
		h.log.Errorf("failed to marshal stream event: %v", err)
		return
	}

	select {
	case h.broadcast <- boardMessage{boardID: boardID, data: data}:
	case <-h.done:
	}
}

// join hands a client to the run loop. It reports false once the hub has
// stopped, so connection handlers do not block at shutdown.
func (h *Hub) join(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// leave is safe to call after Stop for the same reason.
func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) add(client *Client) {
	board := h.clients[client.boardID]
	if board == nil {
		board = make(map[*Client]bool)
		h.clients[client.boardID] = board
	}
	board[client] = true
	metrics.StreamClientsConnected.Inc()
}

func (h *Hub) remove(client *Client) {
	board, ok := h.clients[client.boardID]
	if !ok {
		return
	}
	if _, ok := board[client]; !ok {
		return
	}
	delete(board, client)
	close(client.send)
	if len(board) == 0 {
		delete(h.clients, client.boardID)
	}
	metrics.StreamClientsConnected.Dec()
}

func (h *Hub) deliver(msg boardMessage) {
	for client := range h.clients[msg.boardID] {
		select {
		case client.send <- msg.data:
		default:
			// Slow consumer; drop it rather than stall the board.
			delete(h.clients[msg.boardID], client)
			close(client.send)
			metrics.StreamClientsConnected.Dec()
		}
	}
}
