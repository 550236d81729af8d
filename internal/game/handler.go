package game

import (
	"bufio"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/tomasen/realip"

	"code-vault-go/internal/auth"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

type Handler struct {
	service  GameService
	auth     *auth.Service
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewHandler(service GameService, authService *auth.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service: service,
		auth:    authService,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// sessions are bearer-token scoped, so any origin may connect
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
	Token     string `json:"token"`
	State     State  `json:"state"`
}

type InsertRequest struct {
	Index *int `json:"index"`
	Value *int `json:"value"`
}

type DeleteRequest struct {
	Index *int `json:"index"`
}

type SearchRequest struct {
	Pattern string `json:"pattern"`
}

const codeBadRequest = "bad_request"

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	state, err := h.service.CreateSession(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	token, err := h.auth.IssueToken(state.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, CreateSessionResponse{
		SessionID: state.ID,
		Token:     token,
		State:     state,
	})
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	state, err := h.service.GetState(r.Context(), ps.ByName(auth.SessionParam))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *Handler) Insert(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req InsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if req.Index == nil || req.Value == nil {
		writeBadRequest(w, "index and value are required")
		return
	}

	m, err := h.service.Insert(r.Context(), ps.ByName(auth.SessionParam), *req.Index, *req.Value)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req DeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if req.Index == nil {
		writeBadRequest(w, "index is required")
		return
	}

	m, err := h.service.Delete(r.Context(), ps.ByName(auth.SessionParam), *req.Index)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	out, err := h.service.Search(r.Context(), ps.ByName(auth.SessionParam), req.Pattern)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) Reset(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	state, err := h.service.Reset(r.Context(), ps.ByName(auth.SessionParam))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.EndSession(r.Context(), ps.ByName(auth.SessionParam)); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubscribeToEvents streams the session's events over a WebSocket until the
// client goes away or the session ends.
func (h *Handler) SubscribeToEvents(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	sessionID := ps.ByName(auth.SessionParam)
	events, cancel, err := h.service.Subscribe(sessionID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "session_id", sessionID, "error", err)
		return
	}
	defer conn.Close()

	// the read pump only exists to notice the client closing
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case ev, ok := <-events:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"))
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}

func (h *Handler) FastestOutcomes(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit := DefaultFastestLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = ClampLimit(n)
	}

	outcomes, err := h.service.FastestOutcomes(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, outcomes)
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) Routes() http.Handler {
	router := httprouter.New()
	guard := h.auth.RequireSession

	router.GET("/health", h.Health)
	router.POST("/sessions", h.CreateSession)
	router.GET("/sessions/:id", guard(h.GetSession))
	router.DELETE("/sessions/:id", guard(h.EndSession))
	router.POST("/sessions/:id/insert", guard(h.Insert))
	router.POST("/sessions/:id/delete", guard(h.Delete))
	router.POST("/sessions/:id/search", guard(h.Search))
	router.POST("/sessions/:id/reset", guard(h.Reset))
	router.GET("/sessions/:id/events", guard(h.SubscribeToEvents))
	router.GET("/outcomes/fastest", h.FastestOutcomes)

	return h.logRequests(router)
}

// StatusFor maps a game error onto an HTTP status code.
func StatusFor(err error) int {
	switch {
	case IsValidation(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrSearchInProgress), errors.Is(err, ErrGameOver):
		return http.StatusConflict
	case errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		msg = "internal server error"
	}
	writeJSON(w, status, errorResponse{Error: msg, Code: Code(err)})
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg, Code: codeBadRequest})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack lets the websocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
			"client_ip", realip.FromRequest(r),
		)
	})
}
