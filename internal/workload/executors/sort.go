package executors

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/fxnlabs/gpuprim/internal/gpu"
	"github.com/fxnlabs/gpuprim/internal/sorting"
	"github.com/fxnlabs/gpuprim/internal/verify"
)

// SortExecutor sorts either data (uint32) or floats (float32).
type SortExecutor struct {
	Env
}

type SortPayload struct {
	Data     []uint32  `json:"data,omitempty"`
	Floats   []float32 `json:"floats,omitempty"`
	Strategy string    `json:"strategy"`
}

type SortResult struct {
	Data     []uint32  `json:"data,omitempty"`
	Floats   []float32 `json:"floats,omitempty"`
	Strategy string    `json:"strategy"`
	Digest   string    `json:"digest"`
	Timing
}

func (e *SortExecutor) Execute(ctx context.Context, payload json.RawMessage, log *zap.Logger) (any, error) {
	var p SortPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	if len(p.Data) > 0 && len(p.Floats) > 0 {
		return nil, invalid("send either data or floats, not both")
	}
	if err := e.checkSize(len(p.Data) + len(p.Floats)); err != nil {
		return nil, err
	}
	if p.Strategy == "" {
		p.Strategy = sorting.Radix.String()
		if p.Floats != nil {
			p.Strategy = sorting.Merge.String()
		}
	}
	strategy, err := sorting.ParseStrategy(p.Strategy)
	if err != nil {
		return nil, err
	}
	log.Info("Running sort", zap.Int("n", len(p.Data)+len(p.Floats)), zap.Stringer("strategy", strategy))

	start := time.Now()
	if p.Floats != nil {
		out, err := sortOnDevice(ctx, e.Env, p.Floats, strategy, e.Runner.UploadFloat32, e.Runner.DownloadFloat32)
		if err != nil {
			return nil, err
		}
		timing := e.timing(start)
		if err := verify.SortedPermutation(p.Floats, out); err != nil {
			return nil, verificationFailed("sort", log, err)
		}
		return SortResult{Floats: out, Strategy: strategy.String(), Digest: verify.Digest(out), Timing: timing}, nil
	}

	out, err := sortOnDevice(ctx, e.Env, p.Data, strategy, e.Runner.UploadUint32, e.Runner.DownloadUint32)
	if err != nil {
		return nil, err
	}
	timing := e.timing(start)
	if err := verify.SortedPermutation(p.Data, out); err != nil {
		return nil, verificationFailed("sort", log, err)
	}
	return SortResult{Data: out, Strategy: strategy.String(), Digest: verify.Digest(out), Timing: timing}, nil
}

func sortOnDevice[T verify.Number](
	ctx context.Context,
	env Env,
	data []T,
	strategy sorting.Strategy,
	upload func([]T) (gpu.Array, error),
	download func(gpu.Array, int) ([]T, error),
) ([]T, error) {
	arr, err := upload(data)
	if err != nil {
		return nil, err
	}
	defer arr.Release()
	if err := env.Runner.Sort(ctx, len(data), arr, strategy); err != nil {
		return nil, err
	}
	return download(arr, len(data))
}
