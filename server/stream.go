package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sig-0/vesmonitor/convert"
	"github.com/sig-0/vesmonitor/rates"
)

// Stream timeouts
const (
	streamWriteTimeout = 10 * time.Second
	streamReadTimeout  = 60 * time.Second
	streamPingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(*http.Request) bool {
		return true // public stream
	},
}

// Stream pushes the current snapshot, and every published one after it,
// over a websocket connection
func (s *Server) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug(
			"unable to upgrade stream connection",
			"err", err,
		)

		return
	}

	defer conn.Close()

	// Only the latest snapshot is kept for slow readers
	updates := make(chan rates.Snapshot, 1)

	cancel := s.monitor.Subscribe(func(snap rates.Snapshot) {
		select {
		case <-updates:
		default:
		}

		select {
		case updates <- snap:
		default:
		}
	})
	defer cancel()

	// Drain the client messages, to detect a closed connection
	closed := make(chan struct{})

	go func() {
		defer close(closed)

		_ = conn.SetReadDeadline(time.Now().Add(streamReadTimeout))

		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(streamReadTimeout))
		})

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(snap rates.Snapshot) error {
		if err := conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout)); err != nil {
			return err
		}

		return conn.WriteJSON(&SnapshotResponse{
			Snapshot: snap,
			Status:   s.monitor.LastStatus(),
			Offline:  s.monitor.Offline(),
			Gap:      convert.Gap(snap),
		})
	}

	if err := send(s.monitor.Snapshot()); err != nil {
		return
	}

	ticker := time.NewTicker(streamPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case snap := <-updates:
			if err := send(snap); err != nil {
				s.logger.Debug(
					"unable to stream snapshot",
					"err", err,
				)

				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(streamWriteTimeout)

			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}
