package gpu

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/fxnlabs/gpuprim/internal/gpu"
)

// MockDevice is a mock type for the gpu.Device interface
type MockDevice struct {
	mock.Mock
}

type MockDevice_Expecter struct {
	mock *mock.Mock
}

func (_m *MockDevice) EXPECT() *MockDevice_Expecter {
	return &MockDevice_Expecter{mock: &_m.Mock}
}

// Cleanup provides a mock function with no fields
func (_m *MockDevice) Cleanup() error {
	ret := _m.Called()
	if len(ret) == 0 {
		panic("no return value specified for Cleanup")
	}
	return ret.Error(0)
}

// Compile provides a mock function with given fields: program, entry, defines
func (_m *MockDevice) Compile(program gpu.Program, entry string, defines gpu.Defines) (gpu.Kernel, error) {
	ret := _m.Called(program, entry, defines)
	if len(ret) == 0 {
		panic("no return value specified for Compile")
	}

	var r0 gpu.Kernel
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(gpu.Kernel)
	}
	return r0, ret.Error(1)
}

type MockDevice_Compile_Call struct {
	*mock.Call
}

// Compile is a helper method to define mock.On call
//   - program gpu.Program
//   - entry string
//   - defines gpu.Defines
func (_e *MockDevice_Expecter) Compile(program interface{}, entry interface{}, defines interface{}) *MockDevice_Compile_Call {
	return &MockDevice_Compile_Call{Call: _e.mock.On("Compile", program, entry, defines)}
}

func (_c *MockDevice_Compile_Call) Return(_a0 gpu.Kernel, _a1 error) *MockDevice_Compile_Call {
	_c.Call.Return(_a0, _a1)
	return _c
}

// Finish provides a mock function with given fields: ctx
func (_m *MockDevice) Finish(ctx context.Context) error {
	ret := _m.Called(ctx)
	if len(ret) == 0 {
		panic("no return value specified for Finish")
	}
	return ret.Error(0)
}

type MockDevice_Finish_Call struct {
	*mock.Call
}

// Finish is a helper method to define mock.On call
//   - ctx context.Context
func (_e *MockDevice_Expecter) Finish(ctx interface{}) *MockDevice_Finish_Call {
	return &MockDevice_Finish_Call{Call: _e.mock.On("Finish", ctx)}
}

func (_c *MockDevice_Finish_Call) Return(_a0 error) *MockDevice_Finish_Call {
	_c.Call.Return(_a0)
	return _c
}

// GetDeviceInfo provides a mock function with no fields
func (_m *MockDevice) GetDeviceInfo() gpu.DeviceInfo {
	ret := _m.Called()
	if len(ret) == 0 {
		panic("no return value specified for GetDeviceInfo")
	}
	return ret.Get(0).(gpu.DeviceInfo)
}

type MockDevice_GetDeviceInfo_Call struct {
	*mock.Call
}

// GetDeviceInfo is a helper method to define mock.On call
func (_e *MockDevice_Expecter) GetDeviceInfo() *MockDevice_GetDeviceInfo_Call {
	return &MockDevice_GetDeviceInfo_Call{Call: _e.mock.On("GetDeviceInfo")}
}

func (_c *MockDevice_GetDeviceInfo_Call) Return(_a0 gpu.DeviceInfo) *MockDevice_GetDeviceInfo_Call {
	_c.Call.Return(_a0)
	return _c
}

// Initialize provides a mock function with no fields
func (_m *MockDevice) Initialize() error {
	ret := _m.Called()
	if len(ret) == 0 {
		panic("no return value specified for Initialize")
	}
	return ret.Error(0)
}

// IsAvailable provides a mock function with no fields
func (_m *MockDevice) IsAvailable() bool {
	ret := _m.Called()
	if len(ret) == 0 {
		panic("no return value specified for IsAvailable")
	}
	return ret.Bool(0)
}

// NewArray provides a mock function with given fields: elem, n
func (_m *MockDevice) NewArray(elem gpu.ElemType, n int) (gpu.Array, error) {
	ret := _m.Called(elem, n)
	if len(ret) == 0 {
		panic("no return value specified for NewArray")
	}

	var r0 gpu.Array
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(gpu.Array)
	}
	return r0, ret.Error(1)
}

type MockDevice_NewArray_Call struct {
	*mock.Call
}

// NewArray is a helper method to define mock.On call
//   - elem gpu.ElemType
//   - n int
func (_e *MockDevice_Expecter) NewArray(elem interface{}, n interface{}) *MockDevice_NewArray_Call {
	return &MockDevice_NewArray_Call{Call: _e.mock.On("NewArray", elem, n)}
}

func (_c *MockDevice_NewArray_Call) Return(_a0 gpu.Array, _a1 error) *MockDevice_NewArray_Call {
	_c.Call.Return(_a0, _a1)
	return _c
}

// NewMockDevice creates a new instance of MockDevice. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockDevice(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockDevice {
	m := &MockDevice{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
