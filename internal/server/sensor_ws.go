package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Bearer auth already gates this endpoint.
	CheckOrigin: func(*http.Request) bool { return true },
}

// SensorStream relays readings as JSON text frames, one reading per
// frame. Clients replace their state wholesale on each frame, so there
// is no ordering protocol beyond the transport itself.
func (s *Server) SensorStream(c *gin.Context) {
	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	sub, current := s.sensorHub.Subscribe()
	defer sub.Close()
	defer conn.Close()

	done := make(chan struct{})
	go s.wsReadPump(conn, done)

	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if current != nil {
		if err := conn.WriteJSON(current); err != nil {
			return
		}
	}

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case reading, ok := <-sub.Readings():
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(reading); err != nil {
				s.logWSClose("write", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.logWSClose("ping", err)
				return
			}
		case <-done:
			return
		}
	}
}

// wsReadPump drains the connection so close and pong control frames are
// processed. Payload frames from clients are ignored.
func (s *Server) wsReadPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			s.logWSClose("read", err)
			return
		}
	}
}

// logWSClose separates clients leaving on purpose from connections
// dropping unexpectedly.
func (s *Server) logWSClose(op string, err error) {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		s.log.Debug("websocket closed", zap.String("op", op))
		return
	}
	s.log.Warn("websocket connection lost", zap.String("op", op), zap.Error(err))
}
