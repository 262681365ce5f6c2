package websocket

import (
	"encoding/json"
	"sync"

	"domain-auction/internal/domain"
	"domain-auction/pkg/logger"
)

// ConnectionManager tracks live feed connections per auction. A user may hold
// several connections to the same auction (e.g. two tabs).
type ConnectionManager struct {
	connections map[string]map[domain.WebSocketConnection]struct{} // auctionID -> connections
	mutex       sync.RWMutex
	log         logger.Logger
}

func NewConnectionManager(log logger.Logger) *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]map[domain.WebSocketConnection]struct{}),
		log:         log,
	}
}

func (cm *ConnectionManager) RegisterConnection(userID, auctionID string, conn domain.WebSocketConnection) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if cm.connections[auctionID] == nil {
		cm.connections[auctionID] = make(map[domain.WebSocketConnection]struct{})
	}
	cm.connections[auctionID][conn] = struct{}{}

	cm.log.Info("Connection registered", "user_id", userID, "auction_id", auctionID)
	return nil
}

func (cm *ConnectionManager) UnregisterConnection(userID, auctionID string, conn domain.WebSocketConnection) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	auctionConns, exists := cm.connections[auctionID]
	if !exists {
		return nil
	}
	if _, ok := auctionConns[conn]; !ok {
		return nil
	}
	delete(auctionConns, conn)
	if len(auctionConns) == 0 {
		delete(cm.connections, auctionID)
	}

	cm.log.Info("Connection unregistered", "user_id", userID, "auction_id", auctionID)
	return nil
}

// CloseAndUnregisterConnections closes every connection watching auctionID.
func (cm *ConnectionManager) CloseAndUnregisterConnections(auctionID string) error {
	cm.mutex.Lock()
	auctionConns := cm.connections[auctionID]
	delete(cm.connections, auctionID)
	cm.mutex.Unlock()

	for conn := range auctionConns {
		if err := conn.Close(); err != nil {
			cm.log.Error("Failed to close connection", "user_id", conn.UserID(),
				"auction_id", auctionID, "error", err)
		}
	}

	cm.log.Info("Connections closed for auction", "auction_id", auctionID, "count", len(auctionConns))
	return nil
}

func (cm *ConnectionManager) GetConnectionsForAuction(auctionID string) []domain.WebSocketConnection {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	connections := make([]domain.WebSocketConnection, 0, len(cm.connections[auctionID]))
	for conn := range cm.connections[auctionID] {
		connections = append(connections, conn)
	}
	return connections
}

// BroadcastToAuction sends message to every watcher. A failing connection
// does not stop delivery to the others.
func (cm *ConnectionManager) BroadcastToAuction(auctionID string, message interface{}) error {
	connections := cm.GetConnectionsForAuction(auctionID)
	if len(connections) == 0 {
		return nil
	}

	messageBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	for _, conn := range connections {
		if err := conn.Send(json.RawMessage(messageBytes)); err != nil {
			cm.log.Warn("Failed to send message", "user_id", conn.UserID(),
				"auction_id", auctionID, "error", err)
		}
	}

	cm.log.Debug("Broadcast to auction", "auction_id", auctionID, "connections", len(connections))
	return nil
}
