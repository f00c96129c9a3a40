// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package mocks

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/holomush/accountd/internal/auth"
)

// MockTokenRepository is a mock type for the TokenRepository type
type MockTokenRepository struct {
	mock.Mock
}

// Insert provides a mock function with given fields: ctx, token
func (_m *MockTokenRepository) Insert(ctx context.Context, token *auth.OneTimeToken) error {
	ret := _m.Called(ctx, token)

	if len(ret) == 0 {
		panic("no return value specified for Insert")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, *auth.OneTimeToken) error); ok {
		r0 = rf(ctx, token)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// FindByHash provides a mock function with given fields: ctx, tokenHash, purpose
func (_m *MockTokenRepository) FindByHash(ctx context.Context, tokenHash string, purpose auth.Purpose) (*auth.OneTimeToken, error) {
	ret := _m.Called(ctx, tokenHash, purpose)

	if len(ret) == 0 {
		panic("no return value specified for FindByHash")
	}

	var r0 *auth.OneTimeToken
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, auth.Purpose) (*auth.OneTimeToken, error)); ok {
		return rf(ctx, tokenHash, purpose)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string, auth.Purpose) *auth.OneTimeToken); ok {
		r0 = rf(ctx, tokenHash, purpose)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*auth.OneTimeToken)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string, auth.Purpose) error); ok {
		r1 = rf(ctx, tokenHash, purpose)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// Consume provides a mock function with given fields: ctx, tokenHash, purpose
func (_m *MockTokenRepository) Consume(ctx context.Context, tokenHash string, purpose auth.Purpose) (*auth.OneTimeToken, error) {
	ret := _m.Called(ctx, tokenHash, purpose)

	if len(ret) == 0 {
		panic("no return value specified for Consume")
	}

	var r0 *auth.OneTimeToken
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, auth.Purpose) (*auth.OneTimeToken, error)); ok {
		return rf(ctx, tokenHash, purpose)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string, auth.Purpose) *auth.OneTimeToken); ok {
		r0 = rf(ctx, tokenHash, purpose)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*auth.OneTimeToken)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string, auth.Purpose) error); ok {
		r1 = rf(ctx, tokenHash, purpose)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// DeleteByAccount provides a mock function with given fields: ctx, accountID, purpose
func (_m *MockTokenRepository) DeleteByAccount(ctx context.Context, accountID ulid.ULID, purpose auth.Purpose) (int64, error) {
	ret := _m.Called(ctx, accountID, purpose)

	if len(ret) == 0 {
		panic("no return value specified for DeleteByAccount")
	}

	var r0 int64
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, ulid.ULID, auth.Purpose) (int64, error)); ok {
		return rf(ctx, accountID, purpose)
	}
	if rf, ok := ret.Get(0).(func(context.Context, ulid.ULID, auth.Purpose) int64); ok {
		r0 = rf(ctx, accountID, purpose)
	} else {
		r0 = ret.Get(0).(int64)
	}

	if rf, ok := ret.Get(1).(func(context.Context, ulid.ULID, auth.Purpose) error); ok {
		r1 = rf(ctx, accountID, purpose)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// DeleteExpired provides a mock function with given fields: ctx, purpose, cutoff
func (_m *MockTokenRepository) DeleteExpired(ctx context.Context, purpose auth.Purpose, cutoff time.Time) (int64, error) {
	ret := _m.Called(ctx, purpose, cutoff)

	if len(ret) == 0 {
		panic("no return value specified for DeleteExpired")
	}

	var r0 int64
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, auth.Purpose, time.Time) (int64, error)); ok {
		return rf(ctx, purpose, cutoff)
	}
	if rf, ok := ret.Get(0).(func(context.Context, auth.Purpose, time.Time) int64); ok {
		r0 = rf(ctx, purpose, cutoff)
	} else {
		r0 = ret.Get(0).(int64)
	}

	if rf, ok := ret.Get(1).(func(context.Context, auth.Purpose, time.Time) error); ok {
		r1 = rf(ctx, purpose, cutoff)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockTokenRepository creates a new instance of MockTokenRepository. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockTokenRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockTokenRepository {
	mock := &MockTokenRepository{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}

var _ auth.TokenRepository = (*MockTokenRepository)(nil)
