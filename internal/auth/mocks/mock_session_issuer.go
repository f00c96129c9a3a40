// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package mocks

import (
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/holomush/accountd/internal/auth"
)

// MockSessionIssuer is a mock type for the SessionIssuer type
type MockSessionIssuer struct {
	mock.Mock
}

// Issue provides a mock function with given fields: accountID
func (_m *MockSessionIssuer) Issue(accountID ulid.ULID) (string, error) {
	ret := _m.Called(accountID)

	if len(ret) == 0 {
		panic("no return value specified for Issue")
	}

	var r0 string
	var r1 error
	if rf, ok := ret.Get(0).(func(ulid.ULID) (string, error)); ok {
		return rf(accountID)
	}
	if rf, ok := ret.Get(0).(func(ulid.ULID) string); ok {
		r0 = rf(accountID)
	} else {
		r0 = ret.Get(0).(string)
	}

	if rf, ok := ret.Get(1).(func(ulid.ULID) error); ok {
		r1 = rf(accountID)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// Verify provides a mock function with given fields: token
func (_m *MockSessionIssuer) Verify(token string) (ulid.ULID, error) {
	ret := _m.Called(token)

	if len(ret) == 0 {
		panic("no return value specified for Verify")
	}

	var r0 ulid.ULID
	var r1 error
	if rf, ok := ret.Get(0).(func(string) (ulid.ULID, error)); ok {
		return rf(token)
	}
	if rf, ok := ret.Get(0).(func(string) ulid.ULID); ok {
		r0 = rf(token)
	} else {
		r0 = ret.Get(0).(ulid.ULID)
	}

	if rf, ok := ret.Get(1).(func(string) error); ok {
		r1 = rf(token)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockSessionIssuer creates a new instance of MockSessionIssuer. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockSessionIssuer(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockSessionIssuer {
	mock := &MockSessionIssuer{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}

var _ auth.SessionIssuer = (*MockSessionIssuer)(nil)
