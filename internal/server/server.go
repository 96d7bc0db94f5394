package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"mocap-track-go/internal/config"
	"mocap-track-go/internal/tracker"
	"mocap-track-go/internal/types"
)

// Tracker is the query surface the server exposes.
type Tracker interface {
	Status() tracker.Status
	RigidBodyData(id int, info types.InfoType, timeout time.Duration) (types.RigidBodyData, error)
	ListAvailableRigidBodies(timeout time.Duration) ([]types.RigidBodySample, error)
	MarkerSets(timeout time.Duration) (types.MarkerSets, error)
	UnlabeledMarkers(timeout time.Duration) ([]types.Vec3, error)
	LabeledMarkers(timeout time.Duration) ([]types.LabeledMarker, error)
	RelativePosition(id1, id2 int, timeout time.Duration) (types.Vec3, bool)
	RelativePositionLocal(id1, id2 int, timeout time.Duration) (types.Vec3, bool)
	RelativeOrientation(id1, id2 int, timeout time.Duration) (types.Quat, bool)
	RelativeRotation(id1, id2 int, timeout time.Duration) (types.Quat, bool)
}

type Server struct {
	upgrader websocket.Upgrader
	clients  map[*websocket.Conn]*sync.Mutex
	mu       sync.Mutex
	cfg      config.AppConfig
	tracker  Tracker
}

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
	pingEvery = (pongWait * 9) / 10
)

func New(cfg config.AppConfig, trk Tracker) *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]*sync.Mutex),
		cfg:     cfg,
		tracker: trk,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /config", s.handleConfig)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /rigid-bodies", s.handleRigidBodies)
	mux.HandleFunc("GET /rigid-bodies/{id}", s.handleRigidBody)
	mux.HandleFunc("GET /relative", s.handleRelative)
	mux.HandleFunc("GET /markers/sets", s.handleMarkerSets)
	mux.HandleFunc("GET /markers/unlabeled", s.handleUnlabeled)
	mux.HandleFunc("GET /markers/labeled", s.handleLabeled)
	return mux
}

// Run serves until ctx is done.
func Run(ctx context.Context, cfg config.AppConfig, trk Tracker) error {
	srv := New(cfg, trk)
	httpServer := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		srv.closeClients()
	}()

	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"port":            s.cfg.Port,
		"client_address":  s.cfg.ClientAddress,
		"server_address":  s.cfg.ServerAddress,
		"unicast":         s.cfg.Unicast,
		"data_port":       s.cfg.DataPort,
		"multicast_group": s.cfg.MulticastGroup,
		"timeout":         s.cfg.Timeout.String(),
		"debug":           s.cfg.Debug,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"tracker":    s.tracker.Status(),
		"ws_clients": s.clientCount(),
	})
}

func (s *Server) handleRigidBodies(w http.ResponseWriter, r *http.Request) {
	timeout, ok := s.timeout(w, r)
	if !ok {
		return
	}
	bodies, err := s.tracker.ListAvailableRigidBodies(timeout)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bodies)
}

func (s *Server) handleRigidBody(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid rigid body id"))
		return
	}
	info := types.InfoType(r.URL.Query().Get("info"))
	if info == "" {
		info = types.InfoBoth
	}
	timeout, ok := s.timeout(w, r)
	if !ok {
		return
	}
	data, err := s.tracker.RigidBodyData(id, info, timeout)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

type relativeResult struct {
	From  int    `json:"from"`
	To    int    `json:"to"`
	Frame string `json:"frame"`
	// Value is a Vec3 for world and local frames, a Quat otherwise. Nil
	// means one of the bodies was unavailable.
	Value     any  `json:"value"`
	Available bool `json:"available"`
}

func (s *Server) relative(from, to int, frame string, timeout time.Duration) (relativeResult, bool) {
	result := relativeResult{From: from, To: to, Frame: frame}
	var ok bool
	switch frame {
	case "", "world":
		result.Frame = "world"
		var v types.Vec3
		v, ok = s.tracker.RelativePosition(from, to, timeout)
		result.Value = v
	case "local":
		var v types.Vec3
		v, ok = s.tracker.RelativePositionLocal(from, to, timeout)
		result.Value = v
	case "orientation":
		var q types.Quat
		q, ok = s.tracker.RelativeOrientation(from, to, timeout)
		result.Value = q
	case "rotation":
		var q types.Quat
		q, ok = s.tracker.RelativeRotation(from, to, timeout)
		result.Value = q
	default:
		return result, false
	}
	result.Available = ok
	if !ok {
		result.Value = nil
	}
	return result, true
}

func (s *Server) handleRelative(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, errFrom := strconv.Atoi(q.Get("from"))
	to, errTo := strconv.Atoi(q.Get("to"))
	if errFrom != nil || errTo != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("from and to must be rigid body ids"))
		return
	}
	timeout, ok := s.timeout(w, r)
	if !ok {
		return
	}
	result, valid := s.relative(from, to, q.Get("frame"), timeout)
	if !valid {
		writeJSON(w, http.StatusBadRequest, errorBody("frame must be world, local, orientation or rotation"))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleMarkerSets(w http.ResponseWriter, r *http.Request) {
	timeout, ok := s.timeout(w, r)
	if !ok {
		return
	}
	sets, err := s.tracker.MarkerSets(timeout)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sets)
}

func (s *Server) handleUnlabeled(w http.ResponseWriter, r *http.Request) {
	timeout, ok := s.timeout(w, r)
	if !ok {
		return
	}
	markers, err := s.tracker.UnlabeledMarkers(timeout)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, markers)
}

func (s *Server) handleLabeled(w http.ResponseWriter, r *http.Request) {
	timeout, ok := s.timeout(w, r)
	if !ok {
		return
	}
	markers, err := s.tracker.LabeledMarkers(timeout)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, markers)
}

// timeout reads the optional ?timeout= duration, capped at the configured
// timeout. A malformed value is answered with 400 and ok == false.
func (s *Server) timeout(w http.ResponseWriter, r *http.Request) (time.Duration, bool) {
	d, err := parseTimeout(r.URL.Query().Get("timeout"), s.cfg.Timeout)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return 0, false
	}
	return d, true
}

// parseTimeout parses a request timeout. Empty means limit; values above a
// positive limit are capped to it.
func parseTimeout(raw string, limit time.Duration) (time.Duration, error) {
	if raw == "" {
		return limit, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid timeout %q", raw)
	}
	if limit > 0 && d > limit {
		return limit, nil
	}
	return d, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, tracker.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, tracker.ErrLifecycle):
		return http.StatusServiceUnavailable
	case errors.Is(err, tracker.ErrConfiguration):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorBody(err.Error()))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
