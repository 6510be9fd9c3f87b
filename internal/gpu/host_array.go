package gpu

import (
	"context"
	"fmt"
	"math"
)

// hostArray is an Array backed by host memory and owned by a HostDevice.
type hostArray struct {
	dev  *HostDevice
	buf  *HostBuffer
	n    int
	elem ElemType
}

func (a *hostArray) Len() int       { return a.n }
func (a *hostArray) Elem() ElemType { return a.elem }

func (a *hostArray) Cap() int {
	if a.buf == nil {
		return 0
	}
	return len(a.buf.Words)
}

// Resize sets the logical length. Growing past capacity allocates new storage;
// commands already enqueued keep the old storage.
func (a *hostArray) Resize(n int) error {
	if a.buf == nil {
		return NewConfigError("array.resize", "array released", nil)
	}
	if n < 0 {
		return NewConfigError("array.resize", fmt.Sprintf("negative length %d", n), nil)
	}
	if n <= a.Cap() {
		a.n = n
		return nil
	}
	a.dev.account(int64(n-a.Cap()) * int64(a.elem.Size()))
	a.buf = &HostBuffer{Elem: a.elem, Words: make([]uint32, n)}
	a.n = n
	return nil
}

func (a *hostArray) Write(src any) error {
	if a.buf == nil {
		return NewTransferError("array.write", "array released", nil)
	}
	words, err := toWords(a.elem, src)
	if err != nil {
		return NewTransferError("array.write", err.Error(), nil)
	}
	if len(words) > a.n {
		return NewTransferError("array.write",
			fmt.Sprintf("%d elements do not fit an array of length %d", len(words), a.n), nil)
	}
	buf := a.buf
	return a.dev.queue.Enqueue(func() error {
		copy(buf.Words, words)
		return nil
	})
}

func (a *hostArray) Read(dst any, offset int) error {
	if a.buf == nil {
		return NewTransferError("array.read", "array released", nil)
	}
	count, err := hostLen(a.elem, dst)
	if err != nil {
		return NewTransferError("array.read", err.Error(), nil)
	}
	if offset < 0 || offset+count > a.n {
		return NewTransferError("array.read",
			fmt.Sprintf("range [%d, %d) outside array of length %d", offset, offset+count, a.n), nil)
	}
	buf := a.buf
	if err := a.dev.queue.Enqueue(func() error {
		fromWords(buf.Words[offset:offset+count], dst)
		return nil
	}); err != nil {
		return err
	}
	return a.dev.queue.Barrier(context.Background(), false)
}

func (a *hostArray) Swap(other Array) error {
	b, ok := other.(*hostArray)
	if !ok {
		return NewConfigError("array.swap", fmt.Sprintf("cannot swap with %T", other), nil)
	}
	if a.elem != b.elem {
		return NewConfigError("array.swap",
			fmt.Sprintf("element types differ: %s and %s", a.elem, b.elem), nil)
	}
	a.buf, b.buf = b.buf, a.buf
	a.n, b.n = b.n, a.n
	return nil
}

func (a *hostArray) Release() error {
	if a.buf == nil {
		return nil
	}
	a.dev.account(-int64(a.Cap()) * int64(a.elem.Size()))
	a.buf = nil
	a.n = 0
	return nil
}

func toWords(elem ElemType, src any) ([]uint32, error) {
	switch s := src.(type) {
	case []uint32:
		if elem != Uint32 {
			return nil, fmt.Errorf("[]uint32 written to %s array", elem)
		}
		return append([]uint32(nil), s...), nil
	case []float32:
		if elem != Float32 {
			return nil, fmt.Errorf("[]float32 written to %s array", elem)
		}
		words := make([]uint32, len(s))
		for i, v := range s {
			words[i] = math.Float32bits(v)
		}
		return words, nil
	default:
		return nil, fmt.Errorf("unsupported host slice %T", src)
	}
}

func hostLen(elem ElemType, dst any) (int, error) {
	switch d := dst.(type) {
	case []uint32:
		if elem != Uint32 {
			return 0, fmt.Errorf("%s array read into []uint32", elem)
		}
		return len(d), nil
	case []float32:
		if elem != Float32 {
			return 0, fmt.Errorf("%s array read into []float32", elem)
		}
		return len(d), nil
	default:
		return 0, fmt.Errorf("unsupported host slice %T", dst)
	}
}

func fromWords(words []uint32, dst any) {
	switch d := dst.(type) {
	case []uint32:
		copy(d, words)
	case []float32:
		for i, w := range words {
			d[i] = math.Float32frombits(w)
		}
	}
}
