package mxe

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/evalysfun/evalys-arcium-bridge-service/business/confidential/domain"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/apperror"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/logger"
)

// Gateway routes.
const (
	clusterPath      = "/v1/cluster"
	computationsPath = "/v1/computations"

	maxRequestBytes = 1 << 20
	eventWriteLimit = 10 * time.Second
)

// SubmitResponse acknowledges an accepted computation.
type SubmitResponse struct {
	ID     string                   `json:"id"`
	Status domain.ComputationStatus `json:"status"`
}

// GatewayHandler serves a LocalCluster over the gateway REST and WebSocket API.
type GatewayHandler struct {
	cluster *LocalCluster
	logger  logger.LoggerInterface
	router  chi.Router
}

// NewGatewayHandler creates the handler.
func NewGatewayHandler(cluster *LocalCluster, log logger.LoggerInterface) *GatewayHandler {
	h := &GatewayHandler{cluster: cluster, logger: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get(clusterPath, h.handleCluster)
	r.Post(computationsPath, h.handleSubmit)
	r.Get(computationsPath+"/{id}", h.handleStatus)
	r.Get(computationsPath+"/{id}/events", h.handleEvents)
	h.router = r

	return h
}

func (h *GatewayHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *GatewayHandler) handleCluster(w http.ResponseWriter, r *http.Request) {
	info, err := h.cluster.ClusterKeys(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *GatewayHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req domain.ComputationRequest

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, apperror.Validation(apperror.CodeInvalidFormat, "computation request"))
		return
	}

	if err := h.cluster.Submit(r.Context(), req); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, SubmitResponse{ID: req.ID, Status: domain.StatusQueued})
}

func (h *GatewayHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	state, err := h.cluster.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handleEvents streams every state transition of a computation and closes
// normally after the terminal one.
func (h *GatewayHandler) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	events, err := h.cluster.Watch(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), "websocket accept failed", "computation_id", id, "error", err)
		return
	}
	defer conn.CloseNow()

	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			return
		case state, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "terminal")
				return
			}
			if err := writeEvent(ctx, conn, state); err != nil {
				return
			}
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, state domain.ComputationState) error {
	msg, err := json.Marshal(state)
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, eventWriteLimit)
	defer cancel()
	return conn.Write(wctx, websocket.MessageText, msg)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		appErr = apperror.Internal(apperror.CodeInternalError, "", err)
	}
	writeJSON(w, appErr.StatusCode, appErr.ToResponse())
}
