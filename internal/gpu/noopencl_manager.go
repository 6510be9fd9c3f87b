//go:build !opencl

package gpu

// tryCreateOpenCLDevice returns nil when the opencl build tag is NOT present
func (m *Manager) tryCreateOpenCLDevice() Device {
	return nil
}
