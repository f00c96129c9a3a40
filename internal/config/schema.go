// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// SchemaID is the $id of the config file schema.
const SchemaID = "https://holomush.dev/schemas/accountd-config.schema.json"

// fileSchema describes the keys a config file may set. It mirrors Config;
// durations accept Go duration strings ("24h") or a bare 0.
type fileSchema struct {
	DatabaseURL string `json:"database-url,omitempty" jsonschema:"description=PostgreSQL connection URL"`
	HTTPAddr    string `json:"http-addr,omitempty" jsonschema:"minLength=1"`
	MetricsAddr string `json:"metrics-addr,omitempty"`
	LogFormat   string `json:"log-format,omitempty" jsonschema:"enum=json,enum=text"`
	LogLevel    string `json:"log-level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=warning,enum=error"`
	AutoMigrate bool   `json:"auto-migrate,omitempty"`

	SessionSecret string `json:"session-secret,omitempty" jsonschema:"minLength=32"`
	SessionIssuer string `json:"session-issuer,omitempty"`
	SessionTTL    any    `json:"session-ttl,omitempty" jsonschema:"oneof_type=string;integer"`

	VerificationTTL    any  `json:"verification-ttl,omitempty" jsonschema:"oneof_type=string;integer"`
	ResetTTL           any  `json:"reset-ttl,omitempty" jsonschema:"oneof_type=string;integer"`
	SweepInterval      any  `json:"sweep-interval,omitempty" jsonschema:"oneof_type=string;integer"`
	RequireActiveLogin bool `json:"require-active-login,omitempty"`

	AllowedEmailDomains []string `json:"allowed-email-domains,omitempty" jsonschema:"description=glob patterns of email domains allowed to register"`

	SMTPHost     string `json:"smtp-host,omitempty"`
	SMTPPort     int    `json:"smtp-port,omitempty" jsonschema:"minimum=1,maximum=65535"`
	SMTPUsername string `json:"smtp-username,omitempty"`
	SMTPPassword string `json:"smtp-password,omitempty"`
	SMTPFrom     string `json:"smtp-from,omitempty"`
}

// GenerateSchema returns the JSON Schema for accountd config files.
func GenerateSchema() ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference: true,
	}
	schema := r.Reflect(&fileSchema{})
	schema.ID = jsonschema.ID(SchemaID)
	schema.Title = "accountd configuration"
	schema.Description = "Schema for accountd config.yaml files"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.Code("CONFIG_SCHEMA_FAILED").Wrap(err)
	}
	return data, nil
}

var compiledSchema = sync.OnceValues(func() (*jschema.Schema, error) {
	raw, err := GenerateSchema()
	if err != nil {
		return nil, err
	}
	doc, err := jschema.UnmarshalJSON(strings.NewReader(string(raw)))
	if err != nil {
		return nil, oops.Code("CONFIG_SCHEMA_FAILED").Wrap(err)
	}

	c := jschema.NewCompiler()
	if err := c.AddResource("config.schema.json", doc); err != nil {
		return nil, oops.Code("CONFIG_SCHEMA_FAILED").Wrap(err)
	}
	sch, err := c.Compile("config.schema.json")
	if err != nil {
		return nil, oops.Code("CONFIG_SCHEMA_FAILED").Wrap(err)
	}
	return sch, nil
})

// ValidateFile checks YAML config file contents against the schema. Unknown
// keys are rejected so a misspelled key does not silently fall back to its
// default. An empty file is valid.
func ValidateFile(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return oops.Code("CONFIG_INVALID").Wrapf(err, "invalid YAML")
	}
	if doc == nil {
		return nil
	}

	sch, err := compiledSchema()
	if err != nil {
		return err
	}
	if err := sch.Validate(toJSONTypes(doc)); err != nil {
		return oops.Code("CONFIG_INVALID").Errorf("config file does not match schema: %v", err)
	}
	return nil
}

// toJSONTypes rewrites the values yaml.v3 produces into the types
// encoding/json would, which is what the validator expects.
func toJSONTypes(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, v := range val {
			out[k] = toJSONTypes(v)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, v := range val {
			out[i] = toJSONTypes(v)
		}
		return out
	case string, bool, float64, nil:
		return val
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return val
		}
		out, err := jschema.UnmarshalJSON(strings.NewReader(string(b)))
		if err != nil {
			return val
		}
		return out
	}
}
