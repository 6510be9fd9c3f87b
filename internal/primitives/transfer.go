package primitives

import (
	"fmt"

	"github.com/fxnlabs/gpuprim/internal/gpu"
)

func (r *Runner) UploadUint32(data []uint32) (gpu.Array, error) {
	return upload(r.device, gpu.Uint32, len(data), data)
}

func (r *Runner) UploadFloat32(data []float32) (gpu.Array, error) {
	return upload(r.device, gpu.Float32, len(data), data)
}

// DownloadUint32 reads the first n elements of arr.
func (r *Runner) DownloadUint32(arr gpu.Array, n int) ([]uint32, error) {
	out := make([]uint32, n)
	if err := download(arr, gpu.Uint32, out); err != nil {
		return nil, err
	}
	return out, nil
}

// DownloadFloat32 reads the first n elements of arr.
func (r *Runner) DownloadFloat32(arr gpu.Array, n int) ([]float32, error) {
	out := make([]float32, n)
	if err := download(arr, gpu.Float32, out); err != nil {
		return nil, err
	}
	return out, nil
}

func upload(dev gpu.Device, elem gpu.ElemType, n int, data any) (gpu.Array, error) {
	arr, err := dev.NewArray(elem, n)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	if n == 0 {
		return arr, nil
	}
	if err := arr.Write(data); err != nil {
		_ = arr.Release()
		return nil, fmt.Errorf("upload: %w", err)
	}
	return arr, nil
}

func download(arr gpu.Array, elem gpu.ElemType, dst any) error {
	if arr == nil {
		return gpu.NewConfigError("download", "nil array", nil)
	}
	if arr.Elem() != elem {
		return gpu.NewConfigError("download", fmt.Sprintf("reading %s from a %s array", elem, arr.Elem()), nil)
	}
	if err := arr.Read(dst, 0); err != nil {
		return fmt.Errorf("download: %w", err)
	}
	return nil
}
