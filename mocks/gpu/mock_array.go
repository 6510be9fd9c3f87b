package gpu

import (
	"github.com/stretchr/testify/mock"

	"github.com/fxnlabs/gpuprim/internal/gpu"
)

// MockArray is a mock type for the gpu.Array interface
type MockArray struct {
	mock.Mock
}

type MockArray_Expecter struct {
	mock *mock.Mock
}

func (_m *MockArray) EXPECT() *MockArray_Expecter {
	return &MockArray_Expecter{mock: &_m.Mock}
}

// Cap provides a mock function with no fields
func (_m *MockArray) Cap() int {
	return _m.Called().Int(0)
}

// Elem provides a mock function with no fields
func (_m *MockArray) Elem() gpu.ElemType {
	return _m.Called().Get(0).(gpu.ElemType)
}

type MockArray_Elem_Call struct {
	*mock.Call
}

// Elem is a helper method to define mock.On call
func (_e *MockArray_Expecter) Elem() *MockArray_Elem_Call {
	return &MockArray_Elem_Call{Call: _e.mock.On("Elem")}
}

func (_c *MockArray_Elem_Call) Return(_a0 gpu.ElemType) *MockArray_Elem_Call {
	_c.Call.Return(_a0)
	return _c
}

// Len provides a mock function with no fields
func (_m *MockArray) Len() int {
	return _m.Called().Int(0)
}

type MockArray_Len_Call struct {
	*mock.Call
}

// Len is a helper method to define mock.On call
func (_e *MockArray_Expecter) Len() *MockArray_Len_Call {
	return &MockArray_Len_Call{Call: _e.mock.On("Len")}
}

func (_c *MockArray_Len_Call) Return(_a0 int) *MockArray_Len_Call {
	_c.Call.Return(_a0)
	return _c
}

// Read provides a mock function with given fields: dst, offset
func (_m *MockArray) Read(dst any, offset int) error {
	return _m.Called(dst, offset).Error(0)
}

// Release provides a mock function with no fields
func (_m *MockArray) Release() error {
	return _m.Called().Error(0)
}

type MockArray_Release_Call struct {
	*mock.Call
}

// Release is a helper method to define mock.On call
func (_e *MockArray_Expecter) Release() *MockArray_Release_Call {
	return &MockArray_Release_Call{Call: _e.mock.On("Release")}
}

func (_c *MockArray_Release_Call) Return(_a0 error) *MockArray_Release_Call {
	_c.Call.Return(_a0)
	return _c
}

// Resize provides a mock function with given fields: n
func (_m *MockArray) Resize(n int) error {
	return _m.Called(n).Error(0)
}

// Swap provides a mock function with given fields: other
func (_m *MockArray) Swap(other gpu.Array) error {
	return _m.Called(other).Error(0)
}

type MockArray_Swap_Call struct {
	*mock.Call
}

// Swap is a helper method to define mock.On call
//   - other gpu.Array
func (_e *MockArray_Expecter) Swap(other interface{}) *MockArray_Swap_Call {
	return &MockArray_Swap_Call{Call: _e.mock.On("Swap", other)}
}

func (_c *MockArray_Swap_Call) Return(_a0 error) *MockArray_Swap_Call {
	_c.Call.Return(_a0)
	return _c
}

// Write provides a mock function with given fields: src
func (_m *MockArray) Write(src any) error {
	return _m.Called(src).Error(0)
}

// NewMockArray creates a new instance of MockArray. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockArray(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockArray {
	m := &MockArray{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
