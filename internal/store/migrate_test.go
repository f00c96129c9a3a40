// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/accountd/pkg/errutil"
)

// latestVersion is the highest embedded migration.
const latestVersion = 3

func TestNewMigrator_InvalidURL(t *testing.T) {
	_, err := NewMigrator("invalid://url")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "MIGRATION_INIT_FAILED")
}

func TestNewMigrator_PostgresqlScheme(t *testing.T) {
	// The host does not exist; the failure must come from connecting, not
	// from an unrecognised driver name.
	_, err := NewMigrator("postgresql://localhost:1/accountd")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "MIGRATION_INIT_FAILED")
	assert.NotContains(t, err.Error(), "unknown driver")
}

func TestMigrateURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"postgres://u:p@db:5432/accountd", "pgx5://u:p@db:5432/accountd"},
		{"postgresql://db/accountd?sslmode=disable", "pgx5://db/accountd?sslmode=disable"},
		{"pgx5://db/accountd", "pgx5://db/accountd"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, migrateURL(tt.in))
		})
	}
}

// mockMigrate implements migrateIface for testing.
type mockMigrate struct {
	upErr          error
	downErr        error
	stepsErr       error
	stepsCalls     int
	versionVal     uint
	versionErr     error
	dirty          bool
	forceErr       error
	closeSourceErr error
	closeDbErr     error
}

func (m *mockMigrate) Up() error   { return m.upErr }
func (m *mockMigrate) Down() error { return m.downErr }
func (m *mockMigrate) Steps(_ int) error {
	m.stepsCalls++
	return m.stepsErr
}
func (m *mockMigrate) Version() (uint, bool, error) { return m.versionVal, m.dirty, m.versionErr }
func (m *mockMigrate) Force(_ int) error            { return m.forceErr }
func (m *mockMigrate) Close() (error, error)        { return m.closeSourceErr, m.closeDbErr }

func TestMigrator_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		mock     *mockMigrate
		call     func(*Migrator) error
		wantCode string
	}{
		{"up ok", &mockMigrate{}, (*Migrator).Up, ""},
		{"up no change", &mockMigrate{upErr: migrate.ErrNoChange}, (*Migrator).Up, ""},
		{"up failure", &mockMigrate{upErr: errors.New("database locked")}, (*Migrator).Up, "MIGRATION_UP_FAILED"},
		{"down ok", &mockMigrate{}, (*Migrator).Down, ""},
		{"down no change", &mockMigrate{downErr: migrate.ErrNoChange}, (*Migrator).Down, ""},
		{"down failure", &mockMigrate{downErr: errors.New("constraint violation")}, (*Migrator).Down, "MIGRATION_DOWN_FAILED"},
		{"steps ok", &mockMigrate{}, func(m *Migrator) error { return m.Steps(2) }, ""},
		{"steps no change", &mockMigrate{stepsErr: migrate.ErrNoChange}, func(m *Migrator) error { return m.Steps(-1) }, ""},
		{"steps failure", &mockMigrate{stepsErr: errors.New("invalid step")}, func(m *Migrator) error { return m.Steps(5) }, "MIGRATION_STEPS_FAILED"},
		{"force ok", &mockMigrate{}, func(m *Migrator) error { return m.Force(2) }, ""},
		{"force failure", &mockMigrate{forceErr: errors.New("bad version")}, func(m *Migrator) error { return m.Force(2) }, "MIGRATION_FORCE_FAILED"},
		{"force negative", &mockMigrate{}, func(m *Migrator) error { return m.Force(-1) }, "INVALID_VERSION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call(&Migrator{m: tt.mock})
			if tt.wantCode == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, tt.wantCode)
		})
	}
}

func TestMigrator_StepsZeroSkipsDriver(t *testing.T) {
	mock := &mockMigrate{stepsErr: errors.New("should not be called")}
	require.NoError(t, (&Migrator{m: mock}).Steps(0))
	assert.Zero(t, mock.stepsCalls)
}

func TestMigrator_Version(t *testing.T) {
	t.Run("clean", func(t *testing.T) {
		version, dirty, err := (&Migrator{m: &mockMigrate{versionVal: 2}}).Version()
		require.NoError(t, err)
		assert.Equal(t, uint(2), version)
		assert.False(t, dirty)
	})

	t.Run("dirty", func(t *testing.T) {
		version, dirty, err := (&Migrator{m: &mockMigrate{versionVal: 2, dirty: true}}).Version()
		require.NoError(t, err)
		assert.Equal(t, uint(2), version)
		assert.True(t, dirty)
	})

	t.Run("fresh database", func(t *testing.T) {
		version, dirty, err := (&Migrator{m: &mockMigrate{versionErr: migrate.ErrNilVersion}}).Version()
		require.NoError(t, err)
		assert.Zero(t, version)
		assert.False(t, dirty)
	})

	t.Run("failure", func(t *testing.T) {
		_, _, err := (&Migrator{m: &mockMigrate{versionErr: errors.New("connection lost")}}).Version()
		errutil.AssertErrorCode(t, err, "MIGRATION_VERSION_FAILED")
	})
}

func TestMigrator_Close(t *testing.T) {
	tests := []struct {
		name      string
		mock      *mockMigrate
		component string
	}{
		{"clean", &mockMigrate{}, ""},
		{"source", &mockMigrate{closeSourceErr: errors.New("source close failed")}, "source"},
		{"database", &mockMigrate{closeDbErr: errors.New("db close failed")}, "database"},
		{"both", &mockMigrate{closeSourceErr: errors.New("source close failed"), closeDbErr: errors.New("db close failed")}, "both"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := (&Migrator{m: tt.mock}).Close()
			if tt.component == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, "MIGRATION_CLOSE_FAILED")
			errutil.AssertErrorContext(t, err, "component", tt.component)
		})
	}

	t.Run("both errors are reported", func(t *testing.T) {
		err := (&Migrator{m: &mockMigrate{
			closeSourceErr: errors.New("source close failed"),
			closeDbErr:     errors.New("db close failed"),
		}}).Close()
		assert.Contains(t, err.Error(), "source close failed")
		assert.Contains(t, err.Error(), "db close failed")
	})
}

func TestMigrator_PendingAndApplied(t *testing.T) {
	tests := []struct {
		name    string
		mock    *mockMigrate
		pending []uint
		applied []uint
	}{
		{"fresh database", &mockMigrate{versionErr: migrate.ErrNilVersion}, []uint{1, 2, 3}, nil},
		{"partially migrated", &mockMigrate{versionVal: 1}, []uint{2, 3}, []uint{1}},
		{"latest", &mockMigrate{versionVal: latestVersion}, nil, []uint{1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Migrator{m: tt.mock}

			pending, err := m.PendingMigrations()
			require.NoError(t, err)
			assert.Equal(t, tt.pending, pending)

			applied, err := m.AppliedMigrations()
			require.NoError(t, err)
			assert.Equal(t, tt.applied, applied)
		})
	}

	t.Run("version failure carries the operation", func(t *testing.T) {
		m := &Migrator{m: &mockMigrate{versionErr: errors.New("connection lost")}}

		_, err := m.PendingMigrations()
		errutil.AssertErrorContext(t, err, "operation", "get pending migrations")

		_, err = m.AppliedMigrations()
		errutil.AssertErrorContext(t, err, "operation", "get applied migrations")
	})
}

func TestMigrator_Status(t *testing.T) {
	status, err := (&Migrator{m: &mockMigrate{versionVal: 2, dirty: true}}).Status()
	require.NoError(t, err)
	assert.Equal(t, Status{
		Version: 2,
		Name:    "000002_one_time_tokens",
		Dirty:   true,
		Applied: []uint{1, 2},
		Pending: []uint{3},
	}, status)

	_, err = (&Migrator{m: &mockMigrate{versionErr: errors.New("connection lost")}}).Status()
	require.Error(t, err)
}

func TestMigrationName(t *testing.T) {
	tests := []struct {
		version  uint
		expected string
	}{
		{0, ""},
		{1, "000001_accounts"},
		{2, "000002_one_time_tokens"},
		{3, "000003_token_expiry_index"},
		{999, ""},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("version_%d", tt.version), func(t *testing.T) {
			name, err := MigrationName(tt.version)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, name)
		})
	}
}

func TestAllMigrationVersions_ReturnsCopy(t *testing.T) {
	first, err := allMigrationVersions()
	require.NoError(t, err)
	require.NotEmpty(t, first)

	original := first[0]
	first[0] = 99999

	second, err := allMigrationVersions()
	require.NoError(t, err)
	assert.Equal(t, original, second[0], "mutation should not affect cache")
}
