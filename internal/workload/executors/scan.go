package executors

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/fxnlabs/gpuprim/internal/scan"
	"github.com/fxnlabs/gpuprim/internal/verify"
)

// ScanExecutor runs inclusive (SCAN) or exclusive (PREFIX_SUM) prefix sums.
type ScanExecutor struct {
	Env
	Exclusive bool
}

type ScanPayload struct {
	Data      []uint32 `json:"data"`
	Algorithm string   `json:"algorithm"`
}

type ScanResult struct {
	Result    []uint32                `json:"result"`
	Algorithm string                  `json:"algorithm"`
	Digest    string                  `json:"digest"`
	Samples   []verify.Sample[uint32] `json:"samples"`
	Timing
}

func (e *ScanExecutor) Execute(ctx context.Context, payload json.RawMessage, log *zap.Logger) (any, error) {
	var p ScanPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	if err := e.checkSize(len(p.Data)); err != nil {
		return nil, err
	}
	alg, err := scan.ParseAlgorithm(p.Algorithm)
	if err != nil {
		return nil, err
	}
	log.Info("Running scan", zap.Int("n", len(p.Data)), zap.Stringer("algorithm", alg), zap.Bool("exclusive", e.Exclusive))

	start := time.Now()
	arr, err := e.Runner.UploadUint32(p.Data)
	if err != nil {
		return nil, err
	}
	defer arr.Release()

	if e.Exclusive {
		err = e.Runner.PrefixSum(ctx, len(p.Data), arr, alg)
	} else {
		err = e.Runner.Scan(ctx, len(p.Data), arr, alg)
	}
	if err != nil {
		log.Error("Scan failed", zap.Error(err))
		return nil, err
	}
	out, err := e.Runner.DownloadUint32(arr, len(p.Data))
	if err != nil {
		return nil, err
	}
	timing := e.timing(start)

	if err := verify.Scan(p.Data, out, e.Exclusive); err != nil {
		return nil, verificationFailed("scan", log, err)
	}
	return ScanResult{
		Result:    out,
		Algorithm: alg.String(),
		Digest:    verify.Digest(out),
		Samples:   verify.Samples(out, 5),
		Timing:    timing,
	}, nil
}
