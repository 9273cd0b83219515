package main

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"netwarden/events"
	"netwarden/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Dashboard origin is enforced by the CORS layer; the event
	// channel itself is open to any subscriber on the LAN.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

// wsClient wraps a websocket connection with a write lock. Gorilla
// conns panic on concurrent writes, and the pinger and event pump both
// write.
type wsClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *wsClient) writeJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteJSON(v)
}

func (c *wsClient) writePing() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

// serveWS upgrades the request and bridges hub events onto the socket.
// New subscribers immediately get a device_scan snapshot since the hub
// keeps no history.
func (s *apiServer) serveWS(c *gin.Context) {
	log := logger.Get()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	client := &wsClient{conn: conn}

	id := uuid.NewString()
	ch := make(chan events.Message, 32)
	s.hub.Register(id, ch)
	log.Info("websocket subscriber connected", zap.String("id", id))

	defer func() {
		s.hub.Unregister(id)
		conn.Close()
		log.Info("websocket subscriber disconnected", zap.String("id", id))
	}()

	if err := client.writeJSON(events.DeviceScan(s.cache.List())); err != nil {
		return
	}

	// Reader drains control frames and detects disconnects.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pinger := time.NewTicker(wsPingInterval)
	defer pinger.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if err := client.writeJSON(msg); err != nil {
				return
			}
		case <-pinger.C:
			if err := client.writePing(); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
