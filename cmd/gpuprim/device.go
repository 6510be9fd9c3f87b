package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/fxnlabs/gpuprim/internal/config"
	"github.com/fxnlabs/gpuprim/internal/gpu"
	"github.com/fxnlabs/gpuprim/internal/kernels"
	"github.com/fxnlabs/gpuprim/internal/primitives"
)

func newManager(cfg *config.Config, log *zap.Logger) (*gpu.Manager, error) {
	return gpu.NewManager(log, gpu.ManagerOptions{
		Backend:  cfg.Device.Backend,
		Workers:  cfg.Device.Workers,
		Platform: cfg.Device.Platform,
		Library:  kernels.HostLibrary(),
	})
}

// withRunner builds a runner on the configured device, runs fn and releases
// the device.
func withRunner(c *cli.Context, fn func(r *primitives.Runner, log *zap.Logger) error) error {
	cfg := appConfig(c)
	log := appLogger(c)
	manager, err := newManager(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := manager.Cleanup(); err != nil {
			log.Warn("Device cleanup failed", zap.Error(err))
		}
	}()
	return fn(primitives.NewRunner(manager.GetDevice(), log, cfg.Kernels), log)
}

var (
	sizeFlag = &cli.IntFlag{
		Name:    "n",
		Aliases: []string{"size"},
		Value:   1 << 20,
		Usage:   "Number of elements",
	}
	seedFlag = &cli.Int64Flag{
		Name:  "seed",
		Usage: "Seed for the generated input (0 uses the current time)",
	}
	maxValueFlag = &cli.UintFlag{
		Name:  "max-value",
		Value: 1024,
		Usage: "Generated values are drawn from [0, max-value)",
	}
	floatFlag = &cli.BoolFlag{
		Name:  "float",
		Usage: "Use float32 elements instead of uint32",
	}
)

func newRand(c *cli.Context) *rand.Rand {
	seed := c.Int64(seedFlag.Name)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

func randomUint32(rng *rand.Rand, n int, maxValue uint) []uint32 {
	data := make([]uint32, n)
	for i := range data {
		data[i] = uint32(rng.Int63n(int64(max(maxValue, 1))))
	}
	return data
}

func randomFloat32(rng *rand.Rand, n int) []float32 {
	data := make([]float32, n)
	for i := range data {
		data[i] = rng.Float32()*2 - 1
	}
	return data
}

func checkSize(n int) error {
	if n < 0 {
		return gpu.NewConfigError("cli", fmt.Sprintf("n must not be negative, got %d", n), nil)
	}
	if n > gpu.MaxLength {
		return gpu.NewConfigError("cli", fmt.Sprintf("n must not exceed %d, got %d", gpu.MaxLength, n), nil)
	}
	return nil
}

// checkShape validates a rows×cols matrix and returns its element count.
func checkShape(rows, cols int) (int, error) {
	if err := gpu.CheckShape("cli", rows, cols, gpu.MaxLength); err != nil {
		return 0, err
	}
	return rows * cols, nil
}
