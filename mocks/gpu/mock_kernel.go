package gpu

import (
	"github.com/stretchr/testify/mock"

	"github.com/fxnlabs/gpuprim/internal/geometry"
)

// MockKernel is a mock type for the gpu.Kernel interface
type MockKernel struct {
	mock.Mock
}

type MockKernel_Expecter struct {
	mock *mock.Mock
}

func (_m *MockKernel) EXPECT() *MockKernel_Expecter {
	return &MockKernel_Expecter{mock: &_m.Mock}
}

// Launch provides a mock function with given fields: g, args
func (_m *MockKernel) Launch(g geometry.Geometry, args ...any) error {
	_ca := []interface{}{g}
	_ca = append(_ca, args...)
	ret := _m.Called(_ca...)

	if len(ret) == 0 {
		panic("no return value specified for Launch")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(geometry.Geometry, ...any) error); ok {
		r0 = rf(g, args...)
	} else {
		r0 = ret.Error(0)
	}
	return r0
}

type MockKernel_Launch_Call struct {
	*mock.Call
}

// Launch is a helper method to define mock.On call
//   - g geometry.Geometry
//   - args ...any
func (_e *MockKernel_Expecter) Launch(g interface{}, args ...interface{}) *MockKernel_Launch_Call {
	return &MockKernel_Launch_Call{Call: _e.mock.On("Launch", append([]interface{}{g}, args...)...)}
}

func (_c *MockKernel_Launch_Call) Run(run func(g geometry.Geometry, args ...any)) *MockKernel_Launch_Call {
	_c.Call.Run(func(args mock.Arguments) {
		variadic := make([]any, len(args)-1)
		for i, a := range args[1:] {
			variadic[i] = a
		}
		run(args[0].(geometry.Geometry), variadic...)
	})
	return _c
}

func (_c *MockKernel_Launch_Call) Return(_a0 error) *MockKernel_Launch_Call {
	_c.Call.Return(_a0)
	return _c
}

// Name provides a mock function with no fields
func (_m *MockKernel) Name() string {
	ret := _m.Called()

	if len(ret) == 0 {
		panic("no return value specified for Name")
	}

	return ret.String(0)
}

type MockKernel_Name_Call struct {
	*mock.Call
}

// Name is a helper method to define mock.On call
func (_e *MockKernel_Expecter) Name() *MockKernel_Name_Call {
	return &MockKernel_Name_Call{Call: _e.mock.On("Name")}
}

func (_c *MockKernel_Name_Call) Return(_a0 string) *MockKernel_Name_Call {
	_c.Call.Return(_a0)
	return _c
}

// NewMockKernel creates a new instance of MockKernel. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockKernel(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockKernel {
	m := &MockKernel{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
