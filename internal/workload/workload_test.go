package workload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fxnlabs/gpuprim/internal/config"
	"github.com/fxnlabs/gpuprim/internal/gpu"
	"github.com/fxnlabs/gpuprim/internal/kernels"
	"github.com/fxnlabs/gpuprim/internal/primitives"
	"github.com/fxnlabs/gpuprim/internal/workload/executors"
)

func newEnv(t *testing.T) executors.Env {
	t.Helper()
	dev := gpu.NewHostDevice(zap.NewNop(), kernels.HostLibrary(), 4)
	require.NoError(t, dev.Initialize())
	t.Cleanup(func() { _ = dev.Cleanup() })
	return executors.Env{
		Runner:      primitives.NewRunner(dev, zap.NewNop(), config.Default().Kernels),
		MaxElements: 1024,
	}
}

func TestNewExecutor(t *testing.T) {
	env := newEnv(t)

	testCases := []struct {
		name         string
		workloadType string
		expectedType any
		expectError  bool
	}{
		{"scan", TypeScan, &executors.ScanExecutor{}, false},
		{"prefix sum", TypePrefixSum, &executors.ScanExecutor{}, false},
		{"sort", TypeSort, &executors.SortExecutor{}, false},
		{"transpose", TypeTranspose, &executors.TransposeExecutor{}, false},
		{"sum", TypeSum, &executors.SumExecutor{}, false},
		{"matrix multiplication", TypeMatrixMultiplication, &executors.MatrixMultiplicationExecutor{}, false},
		{"device info", TypeDeviceInfo, &executors.DeviceInfoExecutor{}, false},
		{"unknown", "UNKNOWN", nil, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			executor, err := NewExecutor(tc.workloadType, env)
			if tc.expectError {
				assert.ErrorIs(t, err, ErrUnknownType)
				assert.Nil(t, executor)
			} else {
				assert.NoError(t, err)
				assert.IsType(t, tc.expectedType, executor)
			}
		})
	}

	executor, err := NewExecutor(TypePrefixSum, env)
	require.NoError(t, err)
	assert.True(t, executor.(*executors.ScanExecutor).Exclusive)
}

func post(t *testing.T, h http.Handler, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/workload", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func encode(t *testing.T, workloadType string, payload any) []byte {
	t.Helper()
	p, err := json.Marshal(payload)
	require.NoError(t, err)
	body, err := json.Marshal(Workload{Type: workloadType, Payload: p})
	require.NoError(t, err)
	return body
}

func TestHandler(t *testing.T) {
	handler := NewHandler(newEnv(t), zap.NewNop())

	t.Run("valid workload", func(t *testing.T) {
		rr := post(t, handler, encode(t, TypePrefixSum, map[string]any{"data": []uint32{3, 1, 4, 1, 5}}))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

		var resp struct {
			Status string               `json:"status"`
			Result executors.ScanResult `json:"result"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "success", resp.Status)
		assert.Equal(t, []uint32{0, 3, 4, 8, 9}, resp.Result.Result)
		assert.Equal(t, "host", resp.Result.Backend)
	})

	t.Run("invalid request body", func(t *testing.T) {
		rr := post(t, handler, []byte("invalid json"))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("unknown workload type", func(t *testing.T) {
		rr := post(t, handler, encode(t, "UNKNOWN", nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("invalid payload", func(t *testing.T) {
		rr := post(t, handler, encode(t, TypeSort, map[string]any{"data": []uint32{1}, "strategy": "bogo"}))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("too many elements", func(t *testing.T) {
		rr := post(t, handler, encode(t, TypeScan, map[string]any{"data": make([]uint32, 1025)}))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("wrong method", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/workload", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	})
}

func TestStatusFor(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected int
	}{
		{"invalid payload", fmt.Errorf("sort: %w", executors.ErrInvalidPayload), http.StatusBadRequest},
		{"config error", gpu.NewConfigError("scan", "bad", nil), http.StatusBadRequest},
		{"verification", executors.ErrVerification, http.StatusInternalServerError},
		{"cancelled", fmt.Errorf("scan: %w", context.Canceled), http.StatusServiceUnavailable},
		{"other", errors.New("queue lost"), http.StatusInternalServerError},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, statusFor(tc.err))
		})
	}
}
