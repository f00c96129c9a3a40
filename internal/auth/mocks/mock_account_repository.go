// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package mocks holds testify mocks of the auth collaborator interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/holomush/accountd/internal/auth"
)

// MockAccountRepository is a mock type for the AccountRepository type
type MockAccountRepository struct {
	mock.Mock
}

// Insert provides a mock function with given fields: ctx, account
func (_m *MockAccountRepository) Insert(ctx context.Context, account *auth.Account) error {
	ret := _m.Called(ctx, account)

	if len(ret) == 0 {
		panic("no return value specified for Insert")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, *auth.Account) error); ok {
		r0 = rf(ctx, account)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// FindByID provides a mock function with given fields: ctx, id
func (_m *MockAccountRepository) FindByID(ctx context.Context, id ulid.ULID) (*auth.Account, error) {
	ret := _m.Called(ctx, id)

	if len(ret) == 0 {
		panic("no return value specified for FindByID")
	}

	var r0 *auth.Account
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, ulid.ULID) (*auth.Account, error)); ok {
		return rf(ctx, id)
	}
	if rf, ok := ret.Get(0).(func(context.Context, ulid.ULID) *auth.Account); ok {
		r0 = rf(ctx, id)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*auth.Account)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, ulid.ULID) error); ok {
		r1 = rf(ctx, id)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// FindByEmail provides a mock function with given fields: ctx, email
func (_m *MockAccountRepository) FindByEmail(ctx context.Context, email string) (*auth.Account, error) {
	ret := _m.Called(ctx, email)

	if len(ret) == 0 {
		panic("no return value specified for FindByEmail")
	}

	var r0 *auth.Account
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*auth.Account, error)); ok {
		return rf(ctx, email)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) *auth.Account); ok {
		r0 = rf(ctx, email)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*auth.Account)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, email)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// Activate provides a mock function with given fields: ctx, id, at
func (_m *MockAccountRepository) Activate(ctx context.Context, id ulid.ULID, at time.Time) error {
	ret := _m.Called(ctx, id, at)

	if len(ret) == 0 {
		panic("no return value specified for Activate")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, ulid.ULID, time.Time) error); ok {
		r0 = rf(ctx, id, at)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// ReplacePasswordHash provides a mock function with given fields: ctx, id, oldHash, newHash, at
func (_m *MockAccountRepository) ReplacePasswordHash(ctx context.Context, id ulid.ULID, oldHash string, newHash string, at time.Time) error {
	ret := _m.Called(ctx, id, oldHash, newHash, at)

	if len(ret) == 0 {
		panic("no return value specified for ReplacePasswordHash")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, ulid.ULID, string, string, time.Time) error); ok {
		r0 = rf(ctx, id, oldHash, newHash, at)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// NewMockAccountRepository creates a new instance of MockAccountRepository. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockAccountRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockAccountRepository {
	mock := &MockAccountRepository{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}

var _ auth.AccountRepository = (*MockAccountRepository)(nil)
