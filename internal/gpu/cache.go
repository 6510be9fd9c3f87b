package gpu

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/fxnlabs/gpuprim/internal/metrics"
)

type cacheKey struct {
	program string
	entry   string
	options string
}

// KernelCache memoizes compiled kernels per device. A kernel is identified by
// its program (name and source hash), entry point and rendered defines, so two
// engines asking for the same entry with the same defines share one build.
type KernelCache struct {
	device Device

	mu      sync.Mutex
	kernels map[cacheKey]Kernel
}

func NewKernelCache(device Device) *KernelCache {
	return &KernelCache{
		device:  device,
		kernels: make(map[cacheKey]Kernel),
	}
}

// Device returns the device the cache compiles for.
func (c *KernelCache) Device() Device {
	return c.device
}

// Get returns the compiled kernel, building it on first use.
func (c *KernelCache) Get(program Program, entry string, defines Defines) (Kernel, error) {
	sum := sha256.Sum256([]byte(program.Source))
	key := cacheKey{
		program: program.Name + "@" + hex.EncodeToString(sum[:8]),
		entry:   entry,
		options: defines.Options(),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if k, ok := c.kernels[key]; ok {
		metrics.KernelCacheLookups.WithLabelValues("hit").Inc()
		return k, nil
	}
	metrics.KernelCacheLookups.WithLabelValues("miss").Inc()
	k, err := c.device.Compile(program, entry, defines)
	if err != nil {
		return nil, err
	}
	c.kernels[key] = k
	return k, nil
}

// Len returns the number of compiled kernels held.
func (c *KernelCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.kernels)
}
