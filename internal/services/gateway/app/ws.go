package app

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/LeonardoBeccarini/agribot/internal/broadcast"
	"github.com/LeonardoBeccarini/agribot/internal/model/messages"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxClientMessage = 4096
)

// HandleWS upgrades to a websocket and pushes a sensorUpdate frame on open
// and after every tick. Client messages are read and discarded.
func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Printf("gateway: ws upgrade failed: %v", err)
		return
	}

	id := "ws/" + uuid.NewString()
	sub, err := g.cfg.Hub.Subscribe(id)
	if err != nil {
		message := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error())
		_ = conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(writeWait))
		conn.Close()
		return
	}

	go g.readLoop(conn, id)
	g.writeLoop(conn, sub)
}

// readLoop only exists to notice the peer going away.
func (g *Gateway) readLoop(conn *websocket.Conn, id string) {
	defer g.cfg.Hub.Unsubscribe(id)

	conn.SetReadLimit(maxClientMessage)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (g *Gateway) writeLoop(conn *websocket.Conn, sub *broadcast.Subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		g.cfg.Hub.Unsubscribe(sub.ID())
		conn.Close()
	}()

	for {
		select {
		case snap, ok := <-sub.C():
			if !ok {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			data, err := json.Marshal(messages.SensorUpdate{
				Type:      messages.TypeSensorUpdate,
				Version:   snap.Version,
				Timestamp: snap.TakenAt,
				Data:      snap.State,
			})
			if err != nil {
				g.logger.Printf("gateway: marshal frame for %s: %v", sub.ID(), err)
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
