package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"SignalEngine/internal/domain/models"
	domrepo "SignalEngine/internal/domain/repository"
	xlogger "SignalEngine/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 16
)

// LiveFeed pushes prediction events to connected dashboard clients over
// WebSocket. It implements the Publisher contract so the prediction cycle
// treats it like any other sink; a slow client is dropped rather than
// allowed to stall the broadcast.
type LiveFeed struct {
	upgrader websocket.Upgrader
	logger   *xlogger.Logger

	mu      sync.RWMutex
	clients map[*feedClient]struct{}
	closed  bool
}

type feedClient struct {
	conn *websocket.Conn
	send chan []byte
}

func NewLiveFeed(logger *xlogger.Logger) *LiveFeed {
	return &LiveFeed{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger:  logger,
		clients: make(map[*feedClient]struct{}),
	}
}

// Serve upgrades the request and keeps the connection until the client
// disconnects.
func (f *LiveFeed) Serve(c echo.Context) error {
	conn, err := f.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := &feedClient{conn: conn, send: make(chan []byte, sendBuffer)}
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		conn.Close()
		return nil
	}
	f.clients[client] = struct{}{}
	n := len(f.clients)
	f.mu.Unlock()

	f.logger.Info("live feed client connected", xlogger.Int("clients", n))
	go f.writeLoop(client)
	f.readLoop(client)
	return nil
}

func (f *LiveFeed) PublishPrediction(ctx context.Context, ev models.PredictionEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	f.mu.RLock()
	for client := range f.clients {
		select {
		case client.send <- payload:
		default:
			// Buffer full; client is stalled and gets dropped on next write.
			go f.drop(client)
		}
	}
	f.mu.RUnlock()
	return nil
}

func (f *LiveFeed) Close() error {
	f.mu.Lock()
	f.closed = true
	for client := range f.clients {
		close(client.send)
		delete(f.clients, client)
	}
	f.mu.Unlock()
	return nil
}

func (f *LiveFeed) writeLoop(client *feedClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-client.send:
			if !ok {
				_ = client.conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(writeWait))
				return
			}
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				f.drop(client)
				return
			}
		case <-ticker.C:
			if err := client.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				f.drop(client)
				return
			}
		}
	}
}

// readLoop drains client frames so pong handling works and disconnects are
// noticed.
func (f *LiveFeed) readLoop(client *feedClient) {
	defer f.drop(client)
	client.conn.SetReadLimit(512)
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (f *LiveFeed) drop(client *feedClient) {
	f.mu.Lock()
	if _, ok := f.clients[client]; ok {
		delete(f.clients, client)
		close(client.send)
	}
	f.mu.Unlock()
	client.conn.Close()
}

var _ domrepo.Publisher = (*LiveFeed)(nil)
