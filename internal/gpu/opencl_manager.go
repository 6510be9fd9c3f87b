//go:build opencl

package gpu

// tryCreateOpenCLDevice attempts to create an OpenCL device when the opencl build tag is present
func (m *Manager) tryCreateOpenCLDevice() Device {
	return NewOpenCLDevice(m.logger, m.opts.Platform)
}
