package executors

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/fxnlabs/gpuprim/internal/gpu"
	"github.com/fxnlabs/gpuprim/internal/reduce"
	"github.com/fxnlabs/gpuprim/internal/verify"
)

// SumExecutor reduces data (uint32) or floats (float32). Without a strategy
// every strategy runs and the sums are compared.
type SumExecutor struct {
	Env
}

type SumPayload struct {
	Data     []uint32  `json:"data,omitempty"`
	Floats   []float32 `json:"floats,omitempty"`
	Strategy string    `json:"strategy"`
}

type SumResult struct {
	Sum        string            `json:"sum"`
	Strategies map[string]string `json:"strategies"`
	Timing
}

func (e *SumExecutor) Execute(ctx context.Context, payload json.RawMessage, log *zap.Logger) (any, error) {
	var p SumPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	if len(p.Data) > 0 && len(p.Floats) > 0 {
		return nil, invalid("send either data or floats, not both")
	}
	if err := e.checkSize(len(p.Data) + len(p.Floats)); err != nil {
		return nil, err
	}
	strategies := reduce.Strategies()
	if p.Strategy != "" {
		s, err := reduce.ParseStrategy(p.Strategy)
		if err != nil {
			return nil, err
		}
		strategies = []reduce.Strategy{s}
	}

	start := time.Now()
	var arr gpu.Array
	var err error
	n := len(p.Data)
	if p.Floats != nil {
		n = len(p.Floats)
		arr, err = e.Runner.UploadFloat32(p.Floats)
	} else {
		arr, err = e.Runner.UploadUint32(p.Data)
	}
	if err != nil {
		return nil, err
	}
	defer arr.Release()

	sums := make(map[string]reduce.Scalar, len(strategies))
	for _, s := range strategies {
		sum, err := e.Runner.Sum(ctx, s, n, arr)
		if err != nil {
			log.Error("Sum failed", zap.Stringer("strategy", s), zap.Error(err))
			return nil, err
		}
		sums[s.String()] = sum
	}
	timing := e.timing(start)

	result := SumResult{Strategies: make(map[string]string, len(sums)), Timing: timing}
	for name, sum := range sums {
		if err := e.check(p, sum); err != nil {
			return nil, verificationFailed("sum."+name, log, err)
		}
		result.Strategies[name] = sum.String()
	}
	result.Sum = result.Strategies[strategies[len(strategies)-1].String()]
	log.Info("Sum finished", zap.String("sum", result.Sum), zap.Int("strategies", len(sums)))
	return result, nil
}

func (e *SumExecutor) check(p SumPayload, sum reduce.Scalar) error {
	if p.Floats != nil {
		want, tolerance := verify.SumFloat32(p.Floats)
		if got := float64(sum.Float32()); math.Abs(got-want) > tolerance+1e-6 {
			return fmt.Errorf("sum is %g, want %g within %g", got, want, tolerance)
		}
		return nil
	}
	if want := verify.SumUint32(p.Data); sum.Uint32() != want {
		return fmt.Errorf("sum is %d, want %d", sum.Uint32(), want)
	}
	return nil
}
