package executors

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fxnlabs/gpuprim/internal/gpu"
	"github.com/fxnlabs/gpuprim/internal/metrics"
	"github.com/fxnlabs/gpuprim/internal/primitives"
)

var (
	// ErrInvalidPayload marks requests that cannot be run as sent.
	ErrInvalidPayload = errors.New("invalid payload")
	// ErrVerification marks device results that disagree with the host reference.
	ErrVerification = errors.New("result verification failed")
)

// Env is what every executor runs against.
type Env struct {
	Runner      *primitives.Runner
	MaxElements int
}

// Timing is attached to every result.
type Timing struct {
	ComputationTimeMs float64 `json:"computationTimeMs"`
	Backend           string  `json:"backend"`
}

func (e Env) timing(start time.Time) Timing {
	return Timing{
		ComputationTimeMs: float64(time.Since(start).Microseconds()) / 1000,
		Backend:           e.Runner.Device().GetDeviceInfo().Backend,
	}
}

func (e Env) checkSize(n int) error {
	if e.MaxElements > 0 && n > e.MaxElements {
		return invalid("%d elements exceed the limit of %d", n, e.MaxElements)
	}
	return nil
}

// checkShape rejects matrices beyond the element limit without forming rows*cols.
func (e Env) checkShape(rows, cols int) error {
	if rows < 0 || cols < 0 {
		return invalid("invalid shape %dx%d", rows, cols)
	}
	limit := gpu.MaxLength
	if e.MaxElements > 0 {
		limit = min(limit, e.MaxElements)
	}
	if rows > gpu.MaxLength || cols > gpu.MaxLength || !gpu.ShapeFits(rows, cols, limit) {
		return invalid("%dx%d matrix exceeds the limit of %d elements", rows, cols, limit)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidPayload, fmt.Sprintf(format, args...))
}

func decode(payload json.RawMessage, v any) error {
	if len(payload) == 0 {
		return invalid("empty payload")
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return invalid("%v", err)
	}
	return nil
}

func verificationFailed(operation string, log *zap.Logger, err error) error {
	metrics.VerificationFailures.WithLabelValues(operation).Inc()
	log.Error("Device result failed verification", zap.String("operation", operation), zap.Error(err))
	return fmt.Errorf("%w: %s: %v", ErrVerification, operation, err)
}
