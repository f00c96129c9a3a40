// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/accountd/internal/store"
	"github.com/holomush/accountd/pkg/errutil"
)

// fakeMigrator records the calls the migrate command makes.
type fakeMigrator struct {
	calls  []string
	steps  int
	forced int
	status store.Status
	err    error
	closed bool
}

func (f *fakeMigrator) Up() error {
	f.calls = append(f.calls, "up")
	return f.err
}

func (f *fakeMigrator) Down() error {
	f.calls = append(f.calls, "down")
	return f.err
}

func (f *fakeMigrator) Steps(n int) error {
	f.calls = append(f.calls, "steps")
	f.steps = n
	return f.err
}

func (f *fakeMigrator) Force(version int) error {
	f.calls = append(f.calls, "force")
	f.forced = version
	return f.err
}

func (f *fakeMigrator) Status() (store.Status, error) {
	f.calls = append(f.calls, "status")
	return f.status, f.err
}

func (f *fakeMigrator) Close() error {
	f.closed = true
	return nil
}

func migrateDeps(m *fakeMigrator, gotURL *string) *Deps {
	return &Deps{
		MigratorFactory: func(url string) (Migrator, error) {
			if gotURL != nil {
				*gotURL = url
			}
			return m, nil
		},
	}
}

func TestMigrate_Commands(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantCalls []string
		wantOut   string
	}{
		{"bare migrate runs up", []string{"migrate"}, []string{"up"}, "Migrations completed successfully"},
		{"up", []string{"migrate", "up"}, []string{"up"}, "Migrations completed successfully"},
		{"down all", []string{"migrate", "down"}, []string{"down"}, "Rolling back all migrations"},
		{"down steps", []string{"migrate", "down", "--steps", "2"}, []string{"steps"}, "Rolling back 2 migration(s)"},
		{"force", []string{"migrate", "force", "2"}, []string{"force"}, "Forced schema version to 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &fakeMigrator{}
			var url string
			args := append(tt.args, "--database-url", "postgres://db/accountd")

			out, err := execute(t, migrateDeps(m, &url), args...)

			require.NoError(t, err)
			assert.Equal(t, tt.wantCalls, m.calls)
			assert.Contains(t, out, tt.wantOut)
			assert.Equal(t, "postgres://db/accountd", url)
			assert.True(t, m.closed, "migrator is always closed")
		})
	}
}

func TestMigrate_DownStepsAreNegated(t *testing.T) {
	m := &fakeMigrator{}
	_, err := execute(t, migrateDeps(m, nil), "migrate", "down", "--steps", "3", "--database-url", "postgres://db/accountd")
	require.NoError(t, err)
	assert.Equal(t, -3, m.steps)
}

func TestMigrate_DownRejectsNegativeSteps(t *testing.T) {
	m := &fakeMigrator{}
	_, err := execute(t, migrateDeps(m, nil), "migrate", "down", "--steps=-1", "--database-url", "postgres://db/accountd")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "INVALID_STEPS")
	assert.Empty(t, m.calls)
}

func TestMigrate_Status(t *testing.T) {
	tests := []struct {
		name   string
		status store.Status
		want   []string
	}{
		{
			name:   "fresh database",
			status: store.Status{Pending: []uint{1, 2, 3}},
			want:   []string{"Current version: none", "Applied: none", "Pending: 1, 2, 3"},
		},
		{
			name:   "partially migrated",
			status: store.Status{Version: 2, Name: "000002_one_time_tokens", Applied: []uint{1, 2}, Pending: []uint{3}},
			want:   []string{"Current version: 2 (000002_one_time_tokens)", "Applied: 1, 2", "Pending: 3"},
		},
		{
			name:   "dirty and current",
			status: store.Status{Version: 3, Name: "000003_token_expiry_index", Dirty: true, Applied: []uint{1, 2, 3}},
			want:   []string{"Current version: 3", "State: dirty", "Applied: 1, 2, 3", "Pending: none"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &fakeMigrator{status: tt.status}
			out, err := execute(t, migrateDeps(m, nil), "migrate", "status", "--database-url", "postgres://db/accountd")
			require.NoError(t, err)
			for _, want := range tt.want {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestMigrate_Errors(t *testing.T) {
	t.Run("missing database url", func(t *testing.T) {
		m := &fakeMigrator{}
		_, err := execute(t, migrateDeps(m, nil), "migrate", "up")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
		assert.Empty(t, m.calls)
	})

	t.Run("migrator creation fails", func(t *testing.T) {
		factoryErr := errors.New("bad url")
		deps := &Deps{MigratorFactory: func(string) (Migrator, error) { return nil, factoryErr }}
		_, err := execute(t, deps, "migrate", "up", "--database-url", "postgres://db/accountd")
		require.ErrorIs(t, err, factoryErr)
	})

	t.Run("migration fails and migrator is closed", func(t *testing.T) {
		upErr := errors.New("syntax error")
		m := &fakeMigrator{err: upErr}
		_, err := execute(t, migrateDeps(m, nil), "migrate", "up", "--database-url", "postgres://db/accountd")
		require.ErrorIs(t, err, upErr)
		assert.True(t, m.closed)
	})

	t.Run("force needs a version", func(t *testing.T) {
		m := &fakeMigrator{}
		_, err := execute(t, migrateDeps(m, nil), "migrate", "force", "--database-url", "postgres://db/accountd")
		require.Error(t, err)
		assert.Empty(t, m.calls)
	})

	t.Run("force rejects non-numeric version", func(t *testing.T) {
		m := &fakeMigrator{}
		_, err := execute(t, migrateDeps(m, nil), "migrate", "force", "abc", "--database-url", "postgres://db/accountd")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "INVALID_VERSION")
		assert.Empty(t, m.calls)
	})
}

func TestParseForceVersion(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantVersion int
		wantErr     bool
	}{
		{name: "valid integer", input: "3", wantVersion: 3},
		{name: "zero is valid", input: "0", wantVersion: 0},
		{name: "non-numeric returns error", input: "abc", wantErr: true},
		{name: "float parses as integer (Sscanf stops at dot)", input: "1.5", wantVersion: 1},
		{name: "trailing chars are ignored (Sscanf stops at non-digit)", input: "3abc", wantVersion: 3},
		{name: "negative is valid", input: "-1", wantVersion: -1},
		{name: "empty string returns error", input: "", wantErr: true},
		{name: "whitespace only returns error", input: "   ", wantErr: true},
		{name: "leading whitespace is handled", input: "  42", wantVersion: 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseForceVersion(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				errutil.AssertErrorCode(t, err, "INVALID_VERSION")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantVersion, got)
		})
	}
}
