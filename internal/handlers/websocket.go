package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"chess-server/internal/game"
	"chess-server/internal/models"
	"chess-server/internal/services"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Client commands.
const (
	CommandConnect  = "CONNECT"
	CommandMakeMove = "MAKE_MOVE"
	CommandLeave    = "LEAVE"
	CommandResign   = "RESIGN"
)

// Server message types.
const (
	MessageLoadGame     = "LOAD_GAME"
	MessageError        = "ERROR"
	MessageNotification = "NOTIFICATION"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type GameCommand struct {
	CommandType string     `json:"commandType"`
	AuthToken   string     `json:"authToken"`
	GameID      string     `json:"gameID,omitempty"`
	Move        *game.Move `json:"move,omitempty"`
}

type ServerMessage struct {
	ServerMessageType string             `json:"serverMessageType"`
	Game              *services.GameView `json:"game,omitempty"`
	ErrorMessage      string             `json:"errorMessage,omitempty"`
	Message           string             `json:"message,omitempty"`
}

// Authenticator resolves an access token to a user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// Publisher forwards broadcasts to other server instances.
type Publisher interface {
	PublishBroadcast(sessionID string, message []byte, excludeUsername string)
}

type Client struct {
	conn      *websocket.Conn
	sessionID string
	send      chan []byte

	mu       sync.Mutex
	closed   bool
	username string
}

func (c *Client) enqueue(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		log.Printf("[Hub] Dropping slow client %s in %s", c.username, c.sessionID)
		c.closed = true
		close(c.send)
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) user() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.username
}

func (c *Client) setUser(username string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.username = username
}

// room is the connection set of one game. Its lock is independent of every
// other room.
type room struct {
	mu      sync.Mutex
	clients map[*Client]struct{}
	closed  bool
}

func (r *room) add(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	r.clients[c] = struct{}{}
	return true
}

func (r *room) remove(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, c)
}

func (r *room) deliver(msg []byte, excludeUsername string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for c := range r.clients {
		if excludeUsername != "" && c.user() == excludeUsername {
			continue
		}
		if !c.enqueue(msg) {
			delete(r.clients, c)
		}
	}
}

// Hub maps game IDs to rooms. Its own lock only guards the map.
type Hub struct {
	mu        sync.Mutex
	rooms     map[string]*room
	publisher Publisher
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]*room)}
}

func (h *Hub) SetPublisher(p Publisher) {
	h.publisher = p
}

func (h *Hub) lookup(sessionID string, create bool) *room {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[sessionID]
	if !ok && create {
		r = &room{clients: make(map[*Client]struct{})}
		h.rooms[sessionID] = r
	}
	return r
}

func (h *Hub) join(c *Client) {
	for {
		if h.lookup(c.sessionID, true).add(c) {
			return
		}
	}
}

func (h *Hub) leave(c *Client) {
	if r := h.lookup(c.sessionID, false); r != nil {
		r.remove(c)
		h.prune(c.sessionID, r)
	}
}

// prune drops r from the map once it is empty. A closed room refuses new
// clients so join retries against a fresh one.
func (h *Hub) prune(sessionID string, r *room) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.clients) == 0 && !r.closed {
		r.closed = true
		if h.rooms[sessionID] == r {
			delete(h.rooms, sessionID)
		}
	}
}

// DeliverLocal sends to connections on this instance only. The event bus
// calls it for broadcasts from other instances.
func (h *Hub) DeliverLocal(sessionID string, message []byte, excludeUsername string) {
	if r := h.lookup(sessionID, false); r != nil {
		r.deliver(message, excludeUsername)
		h.prune(sessionID, r)
	}
}

// Broadcast delivers locally and publishes for other instances.
func (h *Hub) Broadcast(sessionID string, message []byte, excludeUsername string) {
	h.DeliverLocal(sessionID, message, excludeUsername)
	if h.publisher != nil {
		h.publisher.PublishBroadcast(sessionID, message, excludeUsername)
	}
}

// RoomCount reports the number of games with live connections.
func (h *Hub) RoomCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}

func encode(msg ServerMessage) []byte {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[Hub] Failed to marshal %s: %v", msg.ServerMessageType, err)
		return nil
	}
	return data
}

func (h *Hub) broadcastMessage(sessionID string, msg ServerMessage, excludeUsername string) {
	if data := encode(msg); data != nil {
		h.Broadcast(sessionID, data, excludeUsername)
	}
}

func (h *Hub) notify(sessionID, text, excludeUsername string) {
	h.broadcastMessage(sessionID, ServerMessage{ServerMessageType: MessageNotification, Message: text}, excludeUsername)
}

func loadGameMessage(g *models.Game) (ServerMessage, error) {
	board, _, err := game.ParseFEN(g.BoardState)
	if err != nil {
		return ServerMessage{}, err
	}
	return ServerMessage{
		ServerMessageType: MessageLoadGame,
		Game:              &services.GameView{Game: g, Board: board},
	}, nil
}

// The Hub is the game service's observer, so REST and WebSocket actions fan
// out identically.

func (h *Hub) PlayerJoined(g *models.Game, username, seat string) {
	if seat == services.Observer {
		h.notify(g.SessionID, fmt.Sprintf("%s joined as an observer", username), username)
		return
	}
	h.notify(g.SessionID, fmt.Sprintf("%s joined as %s", username, seat), username)
}

func (h *Hub) PlayerLeft(g *models.Game, username string) {
	h.notify(g.SessionID, fmt.Sprintf("%s left the game", username), username)
}

func (h *Hub) MoveMade(g *models.Game, move *models.Move) {
	msg, err := loadGameMessage(g)
	if err != nil {
		log.Printf("[Hub] Bad board for %s: %v", g.SessionID, err)
		return
	}
	h.broadcastMessage(g.SessionID, msg, "")

	h.notify(g.SessionID, fmt.Sprintf("%s moved %s to %s", move.Username, move.From, move.To), move.Username)

	switch {
	case move.Checkmate:
		h.notify(g.SessionID, fmt.Sprintf("%s is in checkmate. %s wins", g.CurrentTurn, g.Winner), "")
	case g.WinReason == models.WinReasonStalemate:
		h.notify(g.SessionID, "Stalemate. The game is a draw", "")
	case move.Check:
		h.notify(g.SessionID, fmt.Sprintf("%s is in check", g.CurrentTurn), "")
	}
}

func (h *Hub) PlayerResigned(g *models.Game, username string) {
	h.notify(g.SessionID, fmt.Sprintf("%s resigned. %s wins", username, g.Winner), "")
}

type WebSocketHandler struct {
	hub   *Hub
	games *services.GameService
	authn Authenticator
}

func NewWebSocketHandler(hub *Hub, games *services.GameService, authn Authenticator) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, games: games, authn: authn}
}

func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]
	if sessionID == "" {
		respondWithError(w, http.StatusBadRequest, "Missing game id")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Hub] WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		conn:      conn,
		sessionID: sessionID,
		send:      make(chan []byte, sendBuffer),
	}

	go h.writePump(client)
	h.readPump(client)
}

func (h *WebSocketHandler) readPump(c *Client) {
	defer func() {
		h.hub.leave(c)
		c.close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[Hub] WebSocket error: %v", err)
			}
			return
		}

		var cmd GameCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			h.sendError(c, "malformed command")
			continue
		}
		if !h.handleCommand(c, cmd) {
			return
		}
	}
}

func (h *WebSocketHandler) writePump(c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleCommand runs one command. It returns false when the connection
// should be closed.
func (h *WebSocketHandler) handleCommand(c *Client, cmd GameCommand) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if cmd.GameID != "" && cmd.GameID != c.sessionID {
		h.sendError(c, "command is for a different game")
		return true
	}

	user, err := h.authn.Authenticate(ctx, cmd.AuthToken)
	if err != nil {
		h.sendError(c, "unauthorized")
		return true
	}

	// A connection stays bound to the user of its first CONNECT.
	switch current := c.user(); {
	case current != "" && current != user.Username:
		h.sendError(c, "token does not match connected user")
		return true
	case current == "" && cmd.CommandType != CommandConnect:
		h.sendError(c, "send CONNECT first")
		return true
	}

	switch cmd.CommandType {
	case CommandConnect:
		h.connect(ctx, c, user.Username)

	case CommandMakeMove:
		if cmd.Move == nil {
			h.sendError(c, "move is required")
			return true
		}
		if _, err := h.games.MakeMove(ctx, c.sessionID, user.Username, *cmd.Move); err != nil {
			h.sendServiceError(c, err)
		}

	case CommandResign:
		if _, err := h.games.Resign(ctx, c.sessionID, user.Username); err != nil {
			h.sendServiceError(c, err)
		}

	case CommandLeave:
		if _, err := h.games.Leave(ctx, c.sessionID, user.Username); err != nil {
			h.sendServiceError(c, err)
			return true
		}
		return false

	default:
		h.sendError(c, fmt.Sprintf("unknown command %q", cmd.CommandType))
	}
	return true
}

func (h *WebSocketHandler) connect(ctx context.Context, c *Client, username string) {
	view, err := h.games.GetGame(ctx, c.sessionID)
	if err != nil {
		h.sendServiceError(c, err)
		return
	}

	if c.user() == "" {
		c.setUser(username)
		h.hub.join(c)
	}

	if data := encode(ServerMessage{ServerMessageType: MessageLoadGame, Game: view}); data != nil {
		c.enqueue(data)
	}

	role := "an observer"
	if seat, ok := view.Game.SeatOf(username); ok {
		role = string(seat)
	}
	h.hub.notify(c.sessionID, fmt.Sprintf("%s connected as %s", username, role), username)
}

func (h *WebSocketHandler) sendError(c *Client, message string) {
	if data := encode(ServerMessage{ServerMessageType: MessageError, ErrorMessage: "Error: " + message}); data != nil {
		c.enqueue(data)
	}
}

func (h *WebSocketHandler) sendServiceError(c *Client, err error) {
	if statusFor(err) == http.StatusInternalServerError {
		log.Printf("[Hub] Command failed in %s: %v", c.sessionID, err)
		h.sendError(c, "internal server error")
		return
	}
	h.sendError(c, err.Error())
}
