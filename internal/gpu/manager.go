package gpu

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Backend names accepted by ManagerOptions.Backend.
const (
	BackendAuto   = "auto"
	BackendHost   = "host"
	BackendOpenCL = "opencl"
)

// ManagerOptions selects and configures the device backend.
type ManagerOptions struct {
	Backend  string // auto, host or opencl
	Workers  int    // host device worker goroutines, 0 = NumCPU
	Platform int    // OpenCL platform index
	Library  HostLibrary
}

// Manager handles device backend selection and lifecycle
type Manager struct {
	device Device
	mu     sync.RWMutex
	logger *zap.Logger
	opts   ManagerOptions
}

// NewManager creates a new device manager and selects the best available backend
func NewManager(logger *zap.Logger, opts ManagerOptions) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Backend == "" {
		opts.Backend = BackendAuto
	}

	m := &Manager{
		logger: logger.Named("gpu"),
		opts:   opts,
	}

	if err := m.detectAndInitialize(); err != nil {
		return nil, err
	}

	return m, nil
}

// detectAndInitialize detects available backends and initializes the best one
func (m *Manager) detectAndInitialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.opts.Backend {
	case BackendAuto, BackendOpenCL:
		// Try OpenCL first (only if build tag is enabled)
		if dev := m.tryCreateOpenCLDevice(); dev != nil && dev.IsAvailable() {
			err := dev.Initialize()
			if err == nil {
				m.device = dev
				m.logger.Info("Using OpenCL device", zap.String("name", dev.GetDeviceInfo().Name))
				return nil
			}
			m.logger.Warn("OpenCL initialization failed", zap.Error(err))
			// If initialization failed, try cleanup
			_ = dev.Cleanup()
		}
		if m.opts.Backend == BackendOpenCL {
			return NewConfigError("manager.init", "OpenCL backend requested but not available", ErrNoBackend)
		}
	case BackendHost:
	default:
		return NewConfigError("manager.init", fmt.Sprintf("unknown backend %q", m.opts.Backend), nil)
	}

	// Fall back to the host device
	host := NewHostDevice(m.logger, m.opts.Library, m.opts.Workers)
	if err := host.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize host device: %w", err)
	}
	m.device = host
	m.logger.Info("Using host device", zap.Int("workers", host.workers))
	return nil
}

// GetDevice returns the current device
func (m *Manager) GetDevice() Device {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.device
}

// GetDeviceInfo returns device information from the current device
func (m *Manager) GetDeviceInfo() DeviceInfo {
	dev := m.GetDevice()
	if dev == nil {
		return DeviceInfo{Name: "No backend available"}
	}
	return dev.GetDeviceInfo()
}

// IsGPUAvailable returns true if a real GPU device is active
func (m *Manager) IsGPUAvailable() bool {
	dev := m.GetDevice()
	if dev == nil {
		return false
	}
	_, isHost := dev.(*HostDevice)
	return !isHost
}

// Cleanup releases resources held by the current device
func (m *Manager) Cleanup() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil {
		if err := m.device.Cleanup(); err != nil {
			return err
		}
		m.device = nil
	}
	return nil
}

// GetBackendType returns a string describing the current backend type
func (m *Manager) GetBackendType() string {
	dev := m.GetDevice()
	if dev == nil {
		return "none"
	}
	return dev.GetDeviceInfo().Backend
}
