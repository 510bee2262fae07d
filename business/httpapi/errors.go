package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/evalysfun/evalys-arcium-bridge-service/internal/apm"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/apperror"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/logger"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err as the apperror envelope. Anything that is not an
// AppError becomes a 500 without its message.
func writeError(w http.ResponseWriter, r *http.Request, log logger.LoggerInterface, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		log.Error(r.Context(), "unhandled error", "path", r.URL.Path, "error", err)
		appErr = apperror.New(apperror.CodeInternalError, apperror.WithStatusCode(http.StatusInternalServerError))
	}

	if appErr.TraceID == "" {
		if id := apm.TraceID(r.Context()); id != "" {
			appErr.WithTraceID(id)
		} else if id := middleware.GetReqID(r.Context()); id != "" {
			appErr.WithTraceID(id)
		}
	}
	writeJSON(w, appErr.StatusCode, appErr.ToResponse())
}
