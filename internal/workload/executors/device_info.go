package executors

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/fxnlabs/gpuprim/internal/gpu"
)

// DeviceInfoExecutor reports the active device. The payload is ignored.
type DeviceInfoExecutor struct {
	Env
}

type DeviceInfoResult struct {
	gpu.DeviceInfo
	CompiledKernels int `json:"compiledKernels"`
	MaxElements     int `json:"maxElements"`
}

func (e *DeviceInfoExecutor) Execute(_ context.Context, _ json.RawMessage, log *zap.Logger) (any, error) {
	info := e.Runner.Device().GetDeviceInfo()
	log.Info("Reporting device info",
		zap.String("name", info.Name),
		zap.String("backend", info.Backend))
	return DeviceInfoResult{
		DeviceInfo:      info,
		CompiledKernels: e.Runner.CompiledKernels(),
		MaxElements:     e.MaxElements,
	}, nil
}
