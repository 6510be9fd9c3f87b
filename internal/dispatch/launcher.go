// Package dispatch holds the plumbing shared by the engines: sizing and
// issuing the launches of a multi-round algorithm, and the ping-pong buffer
// pair.
package dispatch

import (
	"context"
	"iter"
	"time"

	"go.uber.org/zap"

	"github.com/fxnlabs/gpuprim/internal/geometry"
	"github.com/fxnlabs/gpuprim/internal/gpu"
	"github.com/fxnlabs/gpuprim/internal/metrics"
)

// Launcher issues the launches of one engine operation. It numbers rounds,
// sizes each dispatch with geometry.Compute and records launch metrics.
// A Launcher is not safe for concurrent use; create one per operation.
type Launcher struct {
	logger *zap.Logger
	rounds int
}

func NewLauncher(logger *zap.Logger) *Launcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Launcher{logger: logger}
}

// Rounds returns the number of launches issued so far.
func (l *Launcher) Rounds() int {
	return l.rounds
}

// Launch dispatches k over items work-items in groups of at most local.
// A round with no work-items is skipped.
func (l *Launcher) Launch(k gpu.Kernel, items, local, stride int, args ...any) error {
	if items == 0 {
		l.logger.Debug("Skipping empty round", zap.String("kernel", k.Name()), zap.Int("stride", stride))
		return nil
	}
	g, err := geometry.Compute(items, local)
	if err != nil {
		return gpu.NewConfigError("dispatch."+k.Name(), "invalid geometry", err)
	}
	return l.launch(k, g.At(l.rounds, stride), args)
}

// Launch2D dispatches k over an x by y range.
func (l *Launcher) Launch2D(k gpu.Kernel, x, y, localX, localY int, args ...any) error {
	g, err := geometry.Compute2D(x, y, localX, localY)
	if err != nil {
		return gpu.NewConfigError("dispatch."+k.Name(), "invalid geometry", err)
	}
	return l.launch(k, g.At(l.rounds, 0), args)
}

func (l *Launcher) launch(k gpu.Kernel, g geometry.Geometry, args []any) error {
	if ce := l.logger.Check(zap.DebugLevel, "Launching kernel"); ce != nil {
		ce.Write(
			zap.String("kernel", k.Name()),
			zap.Int("round", g.Round),
			zap.Int("stride", g.Stride),
			zap.Int("local", g.Local.Size()),
			zap.Int("global", g.Global.Size()),
		)
	}
	if err := k.Launch(g, args...); err != nil {
		return err
	}
	l.rounds++
	metrics.KernelLaunches.WithLabelValues(k.Name()).Inc()
	return nil
}

// Rounds describes one launch per value of a stride sequence.
type Rounds struct {
	Kernel gpu.Kernel
	Local  int
	// Items returns the number of work-items for a stride.
	Items func(stride int) int
	// Args returns the kernel arguments for a stride.
	Args func(stride int) []any
	// After runs after each launch, typically to swap a ping-pong pair.
	After func() error
}

// Run launches r once for every stride of seq, in order. Cancellation is
// checked between rounds.
func (l *Launcher) Run(ctx context.Context, seq iter.Seq[int], r Rounds) error {
	for stride := range seq {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := l.Launch(r.Kernel, r.Items(stride), r.Local, stride, r.Args(stride)...); err != nil {
			return err
		}
		if r.After != nil {
			if err := r.After(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Record publishes the duration and round count of an operation started at start.
func (l *Launcher) Record(operation, strategy string, start time.Time) {
	metrics.OperationDuration.WithLabelValues(operation, strategy).Observe(float64(time.Since(start).Microseconds()) / 1000)
	metrics.OperationRounds.WithLabelValues(operation, strategy).Set(float64(l.rounds))
	l.logger.Debug("Operation finished",
		zap.String("operation", operation),
		zap.String("strategy", strategy),
		zap.Int("rounds", l.rounds),
		zap.Duration("elapsed", time.Since(start)))
}
