package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"mocap-track-go/internal/types"
)

// wsRequest is a query sent by a websocket client. Replies go to the
// requesting connection only.
type wsRequest struct {
	Type    string `json:"type"`
	ID      int    `json:"id"`
	Info    string `json:"info"`
	From    int    `json:"from"`
	To      int    `json:"to"`
	Frame   string `json:"frame"`
	Timeout string `json:"timeout"`
}

type wsReply struct {
	Type  string `json:"type"`
	ID    int    `json:"id,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	s.mu.Lock()
	writeMu := &sync.Mutex{}
	s.clients[conn] = writeMu
	s.mu.Unlock()

	_ = s.writeJSON(conn, writeMu, wsReply{Type: "status", Data: s.tracker.Status()})

	go func() {
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(pingEvery)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					if err := s.writeMessage(conn, writeMu, websocket.PingMessage, nil); err != nil {
						_ = conn.Close()
						return
					}
				}
			}
		}()
		defer close(done)
		defer s.removeClient(conn)
		for {
			messageType, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if messageType != websocket.TextMessage {
				continue
			}
			var request wsRequest
			if err := json.Unmarshal(payload, &request); err != nil {
				_ = s.writeJSON(conn, writeMu, wsReply{Type: "error", Error: "invalid request"})
				continue
			}
			_ = s.writeJSON(conn, writeMu, s.answer(request))
		}
	}()
}

func (s *Server) answer(req wsRequest) wsReply {
	timeout, err := parseTimeout(req.Timeout, s.cfg.Timeout)
	if err != nil {
		return wsReply{Type: "error", ID: req.ID, Error: err.Error()}
	}

	switch req.Type {
	case "status_request":
		return wsReply{Type: "status", Data: s.tracker.Status()}
	case "pose_request":
		info := types.InfoType(req.Info)
		if info == "" {
			info = types.InfoBoth
		}
		data, err := s.tracker.RigidBodyData(req.ID, info, timeout)
		if err != nil {
			return wsReply{Type: "error", ID: req.ID, Error: err.Error()}
		}
		return wsReply{Type: "pose", ID: req.ID, Data: data}
	case "list_request":
		bodies, err := s.tracker.ListAvailableRigidBodies(timeout)
		if err != nil {
			return wsReply{Type: "error", Error: err.Error()}
		}
		return wsReply{Type: "rigid_bodies", Data: bodies}
	case "relative_request":
		result, valid := s.relative(req.From, req.To, req.Frame, timeout)
		if !valid {
			return wsReply{Type: "error", Error: "unknown frame " + req.Frame}
		}
		return wsReply{Type: "relative", Data: result}
	case "markers_request":
		sets, err := s.tracker.MarkerSets(timeout)
		if err != nil {
			return wsReply{Type: "error", Error: err.Error()}
		}
		unlabeled, err := s.tracker.UnlabeledMarkers(0)
		if err != nil {
			return wsReply{Type: "error", Error: err.Error()}
		}
		labeled, err := s.tracker.LabeledMarkers(0)
		if err != nil {
			return wsReply{Type: "error", Error: err.Error()}
		}
		return wsReply{Type: "markers", Data: map[string]any{
			"marker_sets": sets,
			"unlabeled":   unlabeled,
			"labeled":     labeled,
		}}
	default:
		return wsReply{Type: "error", Error: "unknown request type " + req.Type}
	}
}

func (s *Server) removeClient(conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.clients, conn)
	s.mu.Unlock()
	conn.Close()
}

func (s *Server) closeClients() {
	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.clients))
	for conn := range s.clients {
		conns = append(conns, conn)
	}
	s.mu.Unlock()
	for _, conn := range conns {
		s.removeClient(conn)
	}
}

func (s *Server) clientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) writeJSON(conn *websocket.Conn, writeMu *sync.Mutex, payload any) error {
	writeMu.Lock()
	defer writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(payload)
}

func (s *Server) writeMessage(conn *websocket.Conn, writeMu *sync.Mutex, messageType int, payload []byte) error {
	writeMu.Lock()
	defer writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(messageType, payload)
}
