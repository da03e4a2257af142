package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/roach88/dlog/internal/store"
)

// writeWait bounds how long a single snapshot write may block.
const writeWait = 10 * time.Second

// The stream is read-only and carries only snapshot records, which every
// HTTP client can already read, so cross-origin subscribers are allowed.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// GET /snapshots/stream
//
// Upgrades to a WebSocket and sends every snapshot record folded after
// the connection opened, one JSON object per message. The latest stored
// record, if any, is sent first. Heights only increase along the stream.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	snapshots, cancel := s.node.Subscribe()
	defer cancel()

	// The client never sends anything we act on; reading only detects
	// when it goes away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Subscribing before reading the latest record means a fold in between
	// arrives on both paths; sent tracks what the client already has.
	var (
		sent    uint64
		anySent bool
	)
	if latest, err := s.node.LatestSnapshot(r.Context()); err == nil {
		if err := writeSnapshot(conn, latest); err != nil {
			return
		}
		sent, anySent = latest.Height, true
	}

	s.logger.Debug("snapshot stream opened", "remote", r.RemoteAddr)
	for {
		select {
		case <-r.Context().Done():
			return
		case <-closed:
			s.logger.Debug("snapshot stream closed", "remote", r.RemoteAddr)
			return
		case rec, ok := <-snapshots:
			if !ok {
				return
			}
			if anySent && rec.Height <= sent {
				continue
			}
			if err := writeSnapshot(conn, rec); err != nil {
				return
			}
			sent, anySent = rec.Height, true
		}
	}
}

func writeSnapshot(conn *websocket.Conn, rec store.SnapshotRecord) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(rec)
}
