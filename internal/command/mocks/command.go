package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"
)

// NewMockCommand creates a new instance of MockCommand. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockCommand[Req any, Res any](t interface {
	mock.TestingT
	Cleanup(func())
}) *MockCommand[Req, Res] {
	mock := &MockCommand[Req, Res]{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}

// MockCommand is a mock of command.Command in the layout mockery generates from .mockery.yaml.
type MockCommand[Req any, Res any] struct {
	mock.Mock
}

type MockCommand_Expecter[Req any, Res any] struct {
	mock *mock.Mock
}

func (_m *MockCommand[Req, Res]) EXPECT() *MockCommand_Expecter[Req, Res] {
	return &MockCommand_Expecter[Req, Res]{mock: &_m.Mock}
}

// Execute provides a mock function for the type MockCommand
func (_mock *MockCommand[Req, Res]) Execute(ctx context.Context, req Req) (Res, error) {
	ret := _mock.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for Execute")
	}

	var r0 Res
	var r1 error
	if returnFunc, ok := ret.Get(0).(func(context.Context, Req) (Res, error)); ok {
		return returnFunc(ctx, req)
	}
	if returnFunc, ok := ret.Get(0).(func(context.Context, Req) Res); ok {
		r0 = returnFunc(ctx, req)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(Res)
		}
	}
	if returnFunc, ok := ret.Get(1).(func(context.Context, Req) error); ok {
		r1 = returnFunc(ctx, req)
	} else {
		r1 = ret.Error(1)
	}
	return r0, r1
}

// MockCommand_Execute_Call is a *mock.Call that shadows Run/Return methods with type explicit version for method 'Execute'
type MockCommand_Execute_Call[Req any, Res any] struct {
	*mock.Call
}

// Execute is a helper method to define mock.On call
//   - ctx context.Context
//   - req Req
func (_e *MockCommand_Expecter[Req, Res]) Execute(ctx interface{}, req interface{}) *MockCommand_Execute_Call[Req, Res] {
	return &MockCommand_Execute_Call[Req, Res]{Call: _e.mock.On("Execute", ctx, req)}
}

func (_c *MockCommand_Execute_Call[Req, Res]) Run(run func(ctx context.Context, req Req)) *MockCommand_Execute_Call[Req, Res] {
	_c.Call.Run(func(args mock.Arguments) {
		run(args.Get(0).(context.Context), args.Get(1).(Req))
	})
	return _c
}

func (_c *MockCommand_Execute_Call[Req, Res]) Return(res Res, err error) *MockCommand_Execute_Call[Req, Res] {
	_c.Call.Return(res, err)
	return _c
}

func (_c *MockCommand_Execute_Call[Req, Res]) RunAndReturn(run func(ctx context.Context, req Req) (Res, error)) *MockCommand_Execute_Call[Req, Res] {
	_c.Call.Return(run)
	return _c
}
