package executors

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/fxnlabs/gpuprim/internal/gpu"
	"github.com/fxnlabs/gpuprim/internal/verify"
)

const (
	freivaldsIterations = 10
	// Products with more elements are summarized by digest and samples only.
	maxInlineProduct = 256 * 256
)

var errProductMismatch = errors.New("A·(B·r) differs from C·r")

// MatrixMultiplicationExecutor multiplies A·B on the device and checks the
// product with Freivalds' algorithm.
type MatrixMultiplicationExecutor struct {
	Env
}

// MatrixPayload carries either explicit matrices or a size for random
// square matrices generated from Seed.
type MatrixPayload struct {
	A    [][]float64 `json:"A,omitempty"`
	B    [][]float64 `json:"B,omitempty"`
	Size int         `json:"size,omitempty"`
	Seed int64       `json:"seed,omitempty"`
}

type MatrixResult struct {
	C          [][]float64              `json:"C,omitempty"`
	MatrixSize int                      `json:"matrixSize"`
	Flops      float64                  `json:"flops"`
	Verified   bool                     `json:"verified"`
	Digest     string                   `json:"digest"`
	Samples    []verify.Sample[float32] `json:"samples"`
	Timing
}

func (e *MatrixMultiplicationExecutor) Execute(ctx context.Context, payload json.RawMessage, log *zap.Logger) (any, error) {
	var p MatrixPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	if p.Size > 0 && len(p.A) == 0 && len(p.B) == 0 {
		if err := e.checkShape(p.Size, p.Size); err != nil {
			return nil, err
		}
		rng := rand.New(rand.NewSource(p.Seed))
		p.A = randomMatrix(rng, p.Size)
		p.B = randomMatrix(rng, p.Size)
	}
	if len(p.A) == 0 || len(p.B) == 0 {
		return nil, invalid("matrices A or B are empty")
	}

	aFlat, m, k, err := gpu.FlattenMatrix(p.A)
	if err != nil {
		return nil, invalid("A: %v", err)
	}
	bFlat, kb, n, err := gpu.FlattenMatrix(p.B)
	if err != nil {
		return nil, invalid("B: %v", err)
	}
	if k != kb {
		log.Error("Matrix dimensions are not compatible for multiplication",
			zap.Int("a_cols", k),
			zap.Int("b_rows", kb))
		return nil, invalid("A is %dx%d but B is %dx%d", m, k, kb, n)
	}
	if err := e.checkSize(max(m*k, k*n, m*n)); err != nil {
		return nil, err
	}
	log.Info("Running matrix multiplication", zap.Int("m", m), zap.Int("k", k), zap.Int("n", n))

	start := time.Now()
	c, err := e.multiply(ctx, aFlat, bFlat, m, k, n)
	if err != nil {
		log.Error("Matrix multiplication failed", zap.Error(err))
		return nil, err
	}
	timing := e.timing(start)

	a := mat.NewDense(m, k, gpu.Float32ToFloat64(aFlat))
	b := mat.NewDense(k, n, gpu.Float32ToFloat64(bFlat))
	cm := mat.NewDense(m, n, gpu.Float32ToFloat64(c))
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	if !verify.FreivaldsVerify(a, b, cm, freivaldsIterations, rng, tolerance(p.A, p.B, k, n)) {
		return nil, verificationFailed("matmul", log, errProductMismatch)
	}

	flops := 2 * float64(m) * float64(k) * float64(n)
	if timing.ComputationTimeMs > 0 {
		log.Debug("Matrix multiplication throughput",
			zap.Float64("gflops", flops/(timing.ComputationTimeMs*1e6)))
	}
	result := MatrixResult{
		MatrixSize: max(m, n),
		Flops:      flops,
		Verified:   true,
		Digest:     verify.Digest(c),
		Samples:    verify.Samples(c, 5),
		Timing:     timing,
	}
	if m*n <= maxInlineProduct {
		result.C = gpu.UnflattenMatrix(c, m, n)
	}
	return result, nil
}

func (e *MatrixMultiplicationExecutor) multiply(ctx context.Context, aFlat, bFlat []float32, m, k, n int) ([]float32, error) {
	a, err := e.Runner.UploadFloat32(aFlat)
	if err != nil {
		return nil, err
	}
	defer a.Release()
	b, err := e.Runner.UploadFloat32(bFlat)
	if err != nil {
		return nil, err
	}
	defer b.Release()
	c, err := e.Runner.UploadFloat32(make([]float32, m*n))
	if err != nil {
		return nil, err
	}
	defer c.Release()

	if err := e.Runner.MatMul(ctx, m, k, n, a, b, c); err != nil {
		return nil, err
	}
	return e.Runner.DownloadFloat32(c, m*n)
}

// tolerance scales with the inner dimension and magnitudes since the device
// accumulates in float32.
func tolerance(a, b [][]float64, k, n int) float64 {
	return math.Max(1e-6, float64(n)*float64(k)*maxAbs(a)*maxAbs(b)*1e-6)
}

func maxAbs(m [][]float64) float64 {
	var v float64
	for _, row := range m {
		for _, x := range row {
			v = math.Max(v, math.Abs(x))
		}
	}
	return v
}

func randomMatrix(rng *rand.Rand, size int) [][]float64 {
	m := make([][]float64, size)
	for i := range m {
		m[i] = make([]float64, size)
		for j := range m[i] {
			m[i][j] = rng.Float64()*2 - 1
		}
	}
	return m
}
