// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config_test

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/accountd/internal/config"
	"github.com/holomush/accountd/pkg/errutil"
)

func TestGenerateSchema_CoversEveryConfigKey(t *testing.T) {
	raw, err := config.GenerateSchema()
	require.NoError(t, err)

	var schema struct {
		ID                   string         `json:"$id"`
		Properties           map[string]any `json:"properties"`
		AdditionalProperties *bool          `json:"additionalProperties"`
		Required             []string       `json:"required"`
	}
	require.NoError(t, json.Unmarshal(raw, &schema))

	assert.Equal(t, config.SchemaID, schema.ID)
	require.NotNil(t, schema.AdditionalProperties)
	assert.False(t, *schema.AdditionalProperties)
	assert.Empty(t, schema.Required, "every key is optional in a config file")

	typ := reflect.TypeOf(config.Config{})
	for i := range typ.NumField() {
		key := typ.Field(i).Tag.Get("koanf")
		assert.Contains(t, schema.Properties, key, "schema missing %q", key)
	}
	assert.Len(t, schema.Properties, typ.NumField())
}

func TestValidateFile(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "empty file", body: ""},
		{name: "comments only", body: "# nothing set\n"},
		{
			name: "full file",
			body: `
database-url: postgres://db/accountd
http-addr: ":8080"
log-format: text
log-level: debug
session-secret: ` + secret + `
session-ttl: 0
verification-ttl: 24h
sweep-interval: 5m
require-active-login: true
smtp-host: mail.example.com
smtp-port: 2525
smtp-from: accounts@example.com
`,
		},
		{name: "misspelled key", body: "http_addr: \":8080\"\n", wantErr: true},
		{name: "unknown log format", body: "log-format: xml\n", wantErr: true},
		{name: "unknown log level", body: "log-level: verbose\n", wantErr: true},
		{name: "short secret", body: "session-secret: short\n", wantErr: true},
		{name: "port out of range", body: "smtp-port: 70000\n", wantErr: true},
		{name: "port wrong type", body: "smtp-port: twenty\n", wantErr: true},
		{name: "duration wrong type", body: "reset-ttl: true\n", wantErr: true},
		{name: "not a mapping", body: "- a\n- b\n", wantErr: true},
		{name: "malformed yaml", body: "http-addr: [\n", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := config.ValidateFile([]byte(tt.body))
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
		})
	}
}

func TestLoad_RejectsFileFailingSchema(t *testing.T) {
	path := writeConfig(t, "sesion-secret: "+secret+"\n")

	_, err := config.Load(newFlags(t, "--config", path), noEnv)

	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
	errutil.AssertErrorContext(t, err, "path", path)
}
