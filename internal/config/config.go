package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fxnlabs/gpuprim/internal/geometry"
	"github.com/fxnlabs/gpuprim/internal/gpu"
	"github.com/fxnlabs/gpuprim/internal/kernels"
)

type Config struct {
	Logger struct {
		Verbosity string `yaml:"verbosity"`
	} `yaml:"logger"`
	Device struct {
		Backend  string `yaml:"backend"`
		Workers  int    `yaml:"workers"`
		Platform int    `yaml:"platform"`
	} `yaml:"device"`
	Kernels Kernels `yaml:"kernels"`
	Server  struct {
		ListenAddress string        `yaml:"listenAddress"`
		ListenPort    int           `yaml:"listenPort"`
		MaxElements   int           `yaml:"maxElements"`
		ReadTimeout   time.Duration `yaml:"readTimeout"`
	} `yaml:"server"`
}

// Kernels holds the compile-time constants handed to the device programs.
type Kernels struct {
	WorkgroupSize          int  `yaml:"workgroupSize"`
	TransposeWorkgroupSize int  `yaml:"transposeWorkgroupSize"`
	RadixBits              int  `yaml:"radixBits"`
	WithLocalSort          bool `yaml:"withLocalSort"`
	ItemsPerThread         int  `yaml:"itemsPerThread"`
	MatmulTile             int  `yaml:"matmulTile"`
}

func Default() *Config {
	var c Config
	c.Logger.Verbosity = "info"
	c.Device.Backend = gpu.BackendAuto
	c.Kernels = Kernels{
		WorkgroupSize:          kernels.DefaultWorkgroupSize,
		TransposeWorkgroupSize: kernels.DefaultTile,
		RadixBits:              kernels.DefaultRadixBits,
		ItemsPerThread:         kernels.DefaultItemsPerThread,
		MatmulTile:             kernels.DefaultTile,
	}
	c.Server.ListenAddress = "0.0.0.0"
	c.Server.ListenPort = 8090
	c.Server.MaxElements = 1 << 24
	c.Server.ReadTimeout = 30 * time.Second
	return &c
}

// LoadConfig reads path over the defaults and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := Default()
	err = yaml.Unmarshal(data, config)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	switch c.Device.Backend {
	case gpu.BackendAuto, gpu.BackendHost, gpu.BackendOpenCL:
	default:
		return gpu.NewConfigError("config", fmt.Sprintf("unknown device backend %q", c.Device.Backend), nil)
	}
	if c.Device.Workers < 0 {
		return gpu.NewConfigError("config", "device.workers must not be negative", nil)
	}

	k := c.Kernels
	for name, size := range map[string]int{
		"kernels.workgroupSize":          k.WorkgroupSize,
		"kernels.transposeWorkgroupSize": k.TransposeWorkgroupSize,
		"kernels.matmulTile":             k.MatmulTile,
	} {
		if size <= 0 {
			return gpu.NewConfigError("config", fmt.Sprintf("%s must be positive, got %d", name, size), geometry.ErrInvalidLocalSize)
		}
	}
	if k.TransposeWorkgroupSize*k.TransposeWorkgroupSize > 1024 || k.MatmulTile*k.MatmulTile > 1024 {
		return gpu.NewConfigError("config", "2-D tiles above 32x32 exceed common work-group limits", geometry.ErrInvalidLocalSize)
	}
	if k.RadixBits < 1 || k.RadixBits > 8 {
		return gpu.NewConfigError("config", fmt.Sprintf("kernels.radixBits must be in 1..8, got %d", k.RadixBits), nil)
	}
	if k.ItemsPerThread <= 0 {
		return gpu.NewConfigError("config", fmt.Sprintf("kernels.itemsPerThread must be positive, got %d", k.ItemsPerThread), nil)
	}

	if c.Server.ListenPort < 0 || c.Server.ListenPort > 65535 {
		return gpu.NewConfigError("config", fmt.Sprintf("server.listenPort %d out of range", c.Server.ListenPort), nil)
	}
	if c.Server.MaxElements <= 0 {
		return gpu.NewConfigError("config", "server.maxElements must be positive", nil)
	}
	return nil
}
