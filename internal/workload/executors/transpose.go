package executors

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/fxnlabs/gpuprim/internal/verify"
)

// TransposeExecutor transposes a row-major float32 matrix.
type TransposeExecutor struct {
	Env
}

type TransposePayload struct {
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Data []float32 `json:"data"`
}

type TransposeResult struct {
	Rows   int       `json:"rows"`
	Cols   int       `json:"cols"`
	Data   []float32 `json:"data"`
	Digest string    `json:"digest"`
	Timing
}

func (e *TransposeExecutor) Execute(ctx context.Context, payload json.RawMessage, log *zap.Logger) (any, error) {
	var p TransposePayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	if err := e.checkShape(p.Rows, p.Cols); err != nil {
		return nil, err
	}
	if p.Rows*p.Cols != len(p.Data) {
		return nil, invalid("%dx%d matrix with %d elements", p.Rows, p.Cols, len(p.Data))
	}
	log.Info("Running transpose", zap.Int("rows", p.Rows), zap.Int("cols", p.Cols))

	start := time.Now()
	arr, err := e.Runner.UploadFloat32(p.Data)
	if err != nil {
		return nil, err
	}
	defer arr.Release()
	if err := e.Runner.Transpose(ctx, p.Rows, p.Cols, arr); err != nil {
		log.Error("Transpose failed", zap.Error(err))
		return nil, err
	}
	out, err := e.Runner.DownloadFloat32(arr, len(p.Data))
	if err != nil {
		return nil, err
	}
	timing := e.timing(start)

	if err := verify.Transpose(p.Data, out, p.Rows, p.Cols); err != nil {
		return nil, verificationFailed("transpose", log, err)
	}
	return TransposeResult{Rows: p.Cols, Cols: p.Rows, Data: out, Digest: verify.Digest(out), Timing: timing}, nil
}
