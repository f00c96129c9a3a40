// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/holomush/accountd/internal/auth"
)

// MockNotifier is a mock type for the Notifier type
type MockNotifier struct {
	mock.Mock
}

// SendToken provides a mock function with given fields: ctx, email, token, purpose
func (_m *MockNotifier) SendToken(ctx context.Context, email string, token string, purpose auth.Purpose) error {
	ret := _m.Called(ctx, email, token, purpose)

	if len(ret) == 0 {
		panic("no return value specified for SendToken")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string, string, auth.Purpose) error); ok {
		r0 = rf(ctx, email, token, purpose)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// NewMockNotifier creates a new instance of MockNotifier. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockNotifier(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockNotifier {
	mock := &MockNotifier{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}

var _ auth.Notifier = (*MockNotifier)(nil)
