// Package workload serves primitive workloads over HTTP.
package workload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/fxnlabs/gpuprim/internal/gpu"
	"github.com/fxnlabs/gpuprim/internal/metrics"
	"github.com/fxnlabs/gpuprim/internal/workload/executors"
)

// Workload types accepted by the handler.
const (
	TypeScan                 = "SCAN"
	TypePrefixSum            = "PREFIX_SUM"
	TypeSort                 = "SORT"
	TypeTranspose            = "TRANSPOSE"
	TypeSum                  = "SUM"
	TypeMatrixMultiplication = "MATRIX_MULTIPLICATION"
	TypeDeviceInfo           = "DEVICE_INFO"
)

// ErrUnknownType is returned for workload types with no executor.
var ErrUnknownType = errors.New("unknown workload type")

// Executor runs one workload payload on the device.
type Executor interface {
	Execute(ctx context.Context, payload json.RawMessage, log *zap.Logger) (any, error)
}

// Workload is a request body.
type Workload struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Response wraps a successful result.
type Response struct {
	Status string `json:"status"`
	Result any    `json:"result"`
}

// NewExecutor creates an executor based on the workload type.
func NewExecutor(workloadType string, env executors.Env) (Executor, error) {
	switch workloadType {
	case TypeScan:
		return &executors.ScanExecutor{Env: env}, nil
	case TypePrefixSum:
		return &executors.ScanExecutor{Env: env, Exclusive: true}, nil
	case TypeSort:
		return &executors.SortExecutor{Env: env}, nil
	case TypeTranspose:
		return &executors.TransposeExecutor{Env: env}, nil
	case TypeSum:
		return &executors.SumExecutor{Env: env}, nil
	case TypeMatrixMultiplication:
		return &executors.MatrixMultiplicationExecutor{Env: env}, nil
	case TypeDeviceInfo:
		return &executors.DeviceInfoExecutor{Env: env}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, workloadType)
	}
}

// Handler decodes workloads and runs them one at a time against the
// shared device queue.
type Handler struct {
	env     executors.Env
	log     *zap.Logger
	maxBody int64
	sem     chan struct{}
}

func NewHandler(env executors.Env, log *zap.Logger) *Handler {
	// JSON numbers average well under 16 bytes; leave headroom for matrices.
	maxBody := int64(1 << 20)
	if env.MaxElements > 0 {
		maxBody = max(maxBody, int64(env.MaxElements)*32)
	}
	return &Handler{
		env:     env,
		log:     log.Named("workload"),
		maxBody: maxBody,
		sem:     make(chan struct{}, 1),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var workload Workload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBody)).Decode(&workload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	executor, err := NewExecutor(workload.Type, h.env)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	metrics.SetWorkload(r.Context(), workload.Type)

	select {
	case h.sem <- struct{}{}:
	case <-r.Context().Done():
		http.Error(w, "request cancelled", http.StatusServiceUnavailable)
		return
	}
	log := h.log.With(zap.String("type", workload.Type))
	result, err := executor.Execute(r.Context(), workload.Payload, log)
	<-h.sem
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(Response{Status: "success", Result: result}); err != nil {
		log.Error("Failed to encode response", zap.Error(err))
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, executors.ErrInvalidPayload), gpu.IsConfigError(err):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
