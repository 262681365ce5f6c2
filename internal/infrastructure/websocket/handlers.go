package websocket

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"domain-auction/internal/domain"
	"domain-auction/pkg/apperrors"
	"domain-auction/pkg/logger"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// AuctionReader is the lookup the feed needs before accepting a watcher.
type AuctionReader interface {
	GetAuction(ctx context.Context, auctionID string) (*domain.Auction, error)
}

type WebSocketHandler struct {
	auctions    AuctionReader
	authn       domain.Authenticator
	connManager domain.ConnectionManager
	log         logger.Logger
}

func NewWebSocketHandler(auctions AuctionReader, authn domain.Authenticator,
	connManager domain.ConnectionManager, log logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		auctions:    auctions,
		authn:       authn,
		connManager: connManager,
		log:         log,
	}
}

// HandleConnection upgrades GET /ws/auctions/{auctionID} for an authenticated
// caller watching an active auction.
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	auctionID := mux.Vars(r)["auctionID"]

	userID, err := h.authn.Authenticate(r.Context(), requestToken(r))
	if err != nil {
		http.Error(w, "invalid or missing token", http.StatusUnauthorized)
		return
	}

	auction, err := h.auctions.GetAuction(r.Context(), auctionID)
	if err != nil {
		if errors.Is(err, domain.ErrAuctionNotFound) {
			http.Error(w, "auction not found", http.StatusNotFound)
			return
		}
		h.log.Error("Failed to load auction", "auction_id", auctionID, "error", err)
		http.Error(w, apperrors.GenericMessage, http.StatusInternalServerError)
		return
	}

	if !auction.IsActive() {
		h.log.Info("Rejected connection - auction has ended", "auction_id", auctionID)
		http.Error(w, "auction has already ended", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}

	wsConn := NewWebSocketConnection(conn, userID, auctionID)
	if err := h.connManager.RegisterConnection(userID, auctionID, wsConn); err != nil {
		h.log.Error("Failed to register connection", "error", err)
		_ = wsConn.Close()
		return
	}

	go h.handleMessages(wsConn)
}

func (h *WebSocketHandler) handleMessages(conn *WebSocketConnection) {
	defer func() {
		_ = h.connManager.UnregisterConnection(conn.UserID(), conn.AuctionID(), conn)
		_ = conn.Close()
	}()

	conn.conn.SetReadLimit(maxMessageSize)

	for {
		var msg struct {
			Type string `json:"type"`
		}
		if err := conn.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("Feed connection closed", "user_id", conn.UserID(), "error", err)
			}
			return
		}

		switch msg.Type {
		case "ping":
			if err := conn.Send(map[string]string{"type": "pong"}); err != nil {
				return
			}
		default:
			_ = conn.Send(map[string]string{"type": "error", "message": "unsupported message type"})
		}
	}
}

// requestToken reads the bearer token from the access_token query parameter
// (browsers cannot set headers on websocket upgrades) or the Authorization
// header.
func requestToken(r *http.Request) string {
	if token := r.URL.Query().Get("access_token"); token != "" {
		return token
	}
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// WebSocketConnection serialises writes to one gorilla connection.
type WebSocketConnection struct {
	conn      *websocket.Conn
	userID    string
	auctionID string

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func NewWebSocketConnection(conn *websocket.Conn, userID, auctionID string) *WebSocketConnection {
	return &WebSocketConnection{
		conn:      conn,
		userID:    userID,
		auctionID: auctionID,
	}
}

func (wsc *WebSocketConnection) Send(message interface{}) error {
	wsc.writeMu.Lock()
	defer wsc.writeMu.Unlock()
	_ = wsc.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return wsc.conn.WriteJSON(message)
}

func (wsc *WebSocketConnection) Close() error {
	wsc.closeOnce.Do(func() {
		_ = wsc.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		wsc.closeErr = wsc.conn.Close()
	})
	return wsc.closeErr
}

func (wsc *WebSocketConnection) UserID() string {
	return wsc.userID
}

func (wsc *WebSocketConnection) AuctionID() string {
	return wsc.auctionID
}
