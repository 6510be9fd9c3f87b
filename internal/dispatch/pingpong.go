package dispatch

import "github.com/fxnlabs/gpuprim/internal/gpu"

// PingPong is a current/scratch pair of arrays. Swap exchanges the roles
// without touching storage; Settle moves the latest data into the array that
// was current when the pair was created, so callers find results where they
// put their input.
type PingPong struct {
	first, second gpu.Array
	flipped       bool
}

func NewPingPong(current, scratch gpu.Array) *PingPong {
	return &PingPong{first: current, second: scratch}
}

// Current is the array holding the latest data.
func (p *PingPong) Current() gpu.Array {
	if p.flipped {
		return p.second
	}
	return p.first
}

// Scratch is the array the next round writes to.
func (p *PingPong) Scratch() gpu.Array {
	if p.flipped {
		return p.first
	}
	return p.second
}

// Flipped reports whether an odd number of swaps happened since the last Settle.
func (p *PingPong) Flipped() bool {
	return p.flipped
}

// Swap exchanges the current and scratch roles.
func (p *PingPong) Swap() error {
	p.flipped = !p.flipped
	return nil
}

// Settle swaps storage once if the roles are flipped.
func (p *PingPong) Settle() error {
	if !p.flipped {
		return nil
	}
	if err := p.first.Swap(p.second); err != nil {
		return err
	}
	p.flipped = false
	return nil
}
