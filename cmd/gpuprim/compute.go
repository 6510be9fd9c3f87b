package main

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/fxnlabs/gpuprim/internal/gpu"
	"github.com/fxnlabs/gpuprim/internal/primitives"
	"github.com/fxnlabs/gpuprim/internal/reduce"
	"github.com/fxnlabs/gpuprim/internal/scan"
	"github.com/fxnlabs/gpuprim/internal/sorting"
	"github.com/fxnlabs/gpuprim/internal/verify"
)

func printResult(op string, n int, elapsed time.Duration, digest string, err error) error {
	fmt.Printf("operation: %s\n", op)
	fmt.Printf("elements:  %d\n", n)
	fmt.Printf("time:      %s\n", elapsed)
	if elapsed > 0 && n > 0 {
		fmt.Printf("rate:      %.2f Melem/s\n", float64(n)/elapsed.Seconds()/1e6)
	}
	if digest != "" {
		fmt.Printf("digest:    %s\n", digest)
	}
	if err != nil {
		fmt.Printf("verified:  no (%v)\n", err)
		return fmt.Errorf("%s: %w", op, err)
	}
	fmt.Println("verified:  yes")
	return nil
}

func scanCommand() *cli.Command {
	return &cli.Command{
		Name:  "scan",
		Usage: "Run an inclusive or exclusive prefix sum over random uint32 values",
		Flags: []cli.Flag{
			sizeFlag, seedFlag, maxValueFlag,
			&cli.StringFlag{Name: "algorithm", Value: scan.Blelloch.String(), Usage: "blelloch or doubling"},
			&cli.BoolFlag{Name: "exclusive", Usage: "Exclusive prefix sum"},
		},
		Action: func(c *cli.Context) error {
			n := c.Int(sizeFlag.Name)
			if err := checkSize(n); err != nil {
				return err
			}
			alg, err := scan.ParseAlgorithm(c.String("algorithm"))
			if err != nil {
				return err
			}
			exclusive := c.Bool("exclusive")
			data := randomUint32(newRand(c), n, c.Uint(maxValueFlag.Name))

			return withRunner(c, func(r *primitives.Runner, log *zap.Logger) error {
				arr, err := r.UploadUint32(data)
				if err != nil {
					return err
				}
				defer arr.Release()

				start := time.Now()
				if exclusive {
					err = r.PrefixSum(c.Context, n, arr, alg)
				} else {
					err = r.Scan(c.Context, n, arr, alg)
				}
				elapsed := time.Since(start)
				if err != nil {
					return err
				}
				out, err := r.DownloadUint32(arr, n)
				if err != nil {
					return err
				}
				log.Debug("Scan finished", zap.Stringer("algorithm", alg), zap.Bool("exclusive", exclusive))
				return printResult("scan/"+alg.String(), n, elapsed, verify.Digest(out), verify.Scan(data, out, exclusive))
			})
		},
	}
}

func sortCommand() *cli.Command {
	return &cli.Command{
		Name:  "sort",
		Usage: "Sort random values with the bitonic, merge or radix strategy",
		Flags: []cli.Flag{
			sizeFlag, seedFlag, maxValueFlag, floatFlag,
			&cli.StringFlag{Name: "strategy", Usage: "bitonic, merge or radix (default radix, merge for floats)"},
		},
		Action: func(c *cli.Context) error {
			n := c.Int(sizeFlag.Name)
			if err := checkSize(n); err != nil {
				return err
			}
			name := c.String("strategy")
			if name == "" {
				name = sorting.Radix.String()
				if c.Bool(floatFlag.Name) {
					name = sorting.Merge.String()
				}
			}
			strategy, err := sorting.ParseStrategy(name)
			if err != nil {
				return err
			}
			rng := newRand(c)

			return withRunner(c, func(r *primitives.Runner, log *zap.Logger) error {
				op := "sort/" + strategy.String()
				if c.Bool(floatFlag.Name) {
					data := randomFloat32(rng, n)
					out, elapsed, err := sortOnce(c.Context, r, data, strategy, r.UploadFloat32, r.DownloadFloat32)
					if err != nil {
						return err
					}
					return printResult(op, n, elapsed, verify.Digest(out), verify.SortedPermutation(data, out))
				}
				data := randomUint32(rng, n, c.Uint(maxValueFlag.Name))
				out, elapsed, err := sortOnce(c.Context, r, data, strategy, r.UploadUint32, r.DownloadUint32)
				if err != nil {
					return err
				}
				return printResult(op, n, elapsed, verify.Digest(out), verify.SortedPermutation(data, out))
			})
		},
	}
}

func sortOnce[T verify.Number](
	ctx context.Context,
	r *primitives.Runner,
	data []T,
	strategy sorting.Strategy,
	upload func([]T) (gpu.Array, error),
	download func(gpu.Array, int) ([]T, error),
) ([]T, time.Duration, error) {
	arr, err := upload(data)
	if err != nil {
		return nil, 0, err
	}
	defer arr.Release()
	start := time.Now()
	if err := r.Sort(ctx, len(data), arr, strategy); err != nil {
		return nil, 0, err
	}
	elapsed := time.Since(start)
	out, err := download(arr, len(data))
	return out, elapsed, err
}

func transposeCommand() *cli.Command {
	return &cli.Command{
		Name:  "transpose",
		Usage: "Transpose a random float32 matrix in place",
		Flags: []cli.Flag{
			seedFlag,
			&cli.IntFlag{Name: "rows", Value: 1024},
			&cli.IntFlag{Name: "cols", Value: 1024},
		},
		Action: func(c *cli.Context) error {
			rows, cols := c.Int("rows"), c.Int("cols")
			n, err := checkShape(rows, cols)
			if err != nil {
				return err
			}
			data := randomFloat32(newRand(c), n)

			return withRunner(c, func(r *primitives.Runner, log *zap.Logger) error {
				arr, err := r.UploadFloat32(data)
				if err != nil {
					return err
				}
				defer arr.Release()

				start := time.Now()
				if err := r.Transpose(c.Context, rows, cols, arr); err != nil {
					return err
				}
				elapsed := time.Since(start)
				out, err := r.DownloadFloat32(arr, len(data))
				if err != nil {
					return err
				}
				op := fmt.Sprintf("transpose/%dx%d", rows, cols)
				return printResult(op, len(data), elapsed, verify.Digest(out), verify.Transpose(data, out, rows, cols))
			})
		},
	}
}

func reduceCommand() *cli.Command {
	return &cli.Command{
		Name:  "reduce",
		Usage: "Sum random values with one or every reduction strategy",
		Flags: []cli.Flag{
			sizeFlag, seedFlag, maxValueFlag, floatFlag,
			&cli.StringFlag{Name: "strategy", Value: "all", Usage: "atomic, strided, coalesced, local, tree or all"},
		},
		Action: func(c *cli.Context) error {
			n := c.Int(sizeFlag.Name)
			if err := checkSize(n); err != nil {
				return err
			}
			strategies := reduce.Strategies()
			if name := c.String("strategy"); name != "all" {
				s, err := reduce.ParseStrategy(name)
				if err != nil {
					return err
				}
				strategies = []reduce.Strategy{s}
			}

			rng := newRand(c)
			var uints []uint32
			var floats []float32
			if c.Bool(floatFlag.Name) {
				floats = randomFloat32(rng, n)
			} else {
				uints = randomUint32(rng, n, c.Uint(maxValueFlag.Name))
			}

			return withRunner(c, func(r *primitives.Runner, log *zap.Logger) error {
				var arr gpu.Array
				var err error
				if floats != nil {
					arr, err = r.UploadFloat32(floats)
				} else {
					arr, err = r.UploadUint32(uints)
				}
				if err != nil {
					return err
				}
				defer arr.Release()

				for _, s := range strategies {
					start := time.Now()
					sum, err := r.Sum(c.Context, s, n, arr)
					if err != nil {
						return err
					}
					elapsed := time.Since(start)
					if err := printResult("reduce/"+s.String(), n, elapsed, "sum="+sum.String(), checkSum(uints, floats, sum)); err != nil {
						return err
					}
					fmt.Println()
				}
				return nil
			})
		},
	}
}

func checkSum(uints []uint32, floats []float32, sum reduce.Scalar) error {
	if floats != nil {
		want, tolerance := verify.SumFloat32(floats)
		if got := float64(sum.Float32()); math.Abs(got-want) > tolerance+1e-6 {
			return fmt.Errorf("sum is %g, want %g", got, want)
		}
		return nil
	}
	if want := verify.SumUint32(uints); sum.Uint32() != want {
		return fmt.Errorf("sum is %d, want %d", sum.Uint32(), want)
	}
	return nil
}

func matmulCommand() *cli.Command {
	return &cli.Command{
		Name:  "matmul",
		Usage: "Multiply random float32 matrices and check the product against gonum",
		Flags: []cli.Flag{
			seedFlag,
			&cli.IntFlag{Name: "size", Value: 256, Usage: "Square size; overridden by -m, -k, -n"},
			&cli.IntFlag{Name: "m"},
			&cli.IntFlag{Name: "k"},
			&cli.IntFlag{Name: "n"},
		},
		Action: func(c *cli.Context) error {
			size := c.Int("size")
			m, k, n := size, size, size
			if c.IsSet("m") {
				m = c.Int("m")
			}
			if c.IsSet("k") {
				k = c.Int("k")
			}
			if c.IsSet("n") {
				n = c.Int("n")
			}
			for _, shape := range [][2]int{{m, k}, {k, n}, {m, n}} {
				if _, err := checkShape(shape[0], shape[1]); err != nil {
					return err
				}
			}
			rng := newRand(c)
			a, b := randomFloat32(rng, m*k), randomFloat32(rng, k*n)

			return withRunner(c, func(r *primitives.Runner, log *zap.Logger) error {
				out, elapsed, err := multiplyOnce(c.Context, r, a, b, m, k, n)
				if err != nil {
					return err
				}
				// gonum rejects zero-sized matrices.
				var verr error
				if m > 0 && k > 0 && n > 0 {
					var want mat.Dense
					want.Mul(mat.NewDense(m, k, gpu.Float32ToFloat64(a)), mat.NewDense(k, n, gpu.Float32ToFloat64(b)))
					if !mat.EqualApprox(&want, mat.NewDense(m, n, gpu.Float32ToFloat64(out)), float64(k)*1e-5+1e-5) {
						verr = fmt.Errorf("product differs from the gonum reference")
					}
				}
				if elapsed > 0 {
					fmt.Printf("gflops:    %.2f\n", 2*float64(m)*float64(k)*float64(n)/elapsed.Seconds()/1e9)
				}
				return printResult(fmt.Sprintf("matmul/%dx%dx%d", m, k, n), m*n, elapsed, verify.Digest(out), verr)
			})
		},
	}
}

func multiplyOnce(ctx context.Context, r *primitives.Runner, a, b []float32, m, k, n int) ([]float32, time.Duration, error) {
	da, err := r.UploadFloat32(a)
	if err != nil {
		return nil, 0, err
	}
	defer da.Release()
	db, err := r.UploadFloat32(b)
	if err != nil {
		return nil, 0, err
	}
	defer db.Release()
	dc, err := r.UploadFloat32(make([]float32, m*n))
	if err != nil {
		return nil, 0, err
	}
	defer dc.Release()

	start := time.Now()
	if err := r.MatMul(ctx, m, k, n, da, db, dc); err != nil {
		return nil, 0, err
	}
	elapsed := time.Since(start)
	out, err := r.DownloadFloat32(dc, m*n)
	return out, elapsed, err
}
