package handler

import (
	"net/http"
	"time"

	"github.com/peternagy/consultadmin/internal/api/response"
	"github.com/peternagy/consultadmin/internal/types"
)

// Readiness reports the store connection state without touching the network.
type Readiness interface {
	IsConnected() bool
	Status() types.ConnectionStatus
}

// Health is the body of the liveness endpoint.
type Health struct {
	Status  string `json:"status"`
	Time    string `json:"time"`
	Version string `json:"version,omitempty"`
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	readiness Readiness
	now       func() time.Time
}

func NewOpsHandler(version string, readiness Readiness) *OpsHandler {
	return &OpsHandler{version: version, readiness: readiness, now: time.Now}
}

// Liveness handles GET /healthz.
func (h *OpsHandler) Liveness(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, Health{
		Status:  "ok",
		Time:    h.now().UTC().Format(time.RFC3339),
		Version: h.version,
	})
}

// Readiness handles GET /readyz. It answers 503 until the store is connected.
// It reflects the cached client state and never pings, so a store that goes
// away after connecting still reads as ready while individual snapshot reads
// fail and are reported as empty values.
func (h *OpsHandler) Readiness(w http.ResponseWriter, _ *http.Request) {
	status := h.readiness.Status()
	if !h.readiness.IsConnected() {
		response.JSON(w, http.StatusServiceUnavailable, response.Envelope{
			Success: false,
			Data:    status,
			Error:   response.CodeUnavailable,
			Message: "store is " + string(status.State),
		})
		return
	}
	response.OK(w, status)
}
