// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// noEnv is a Getenv that sees an empty environment.
func noEnv(string) string { return "" }

// execute runs the root command with args and returns its output.
func execute(t *testing.T, deps *Deps, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })

	if deps.Getenv == nil {
		deps.Getenv = noEnv
	}
	cmd := newRootCmdWithDeps(deps)
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	out, err := execute(t, &Deps{}, "--help")
	require.NoError(t, err)

	for _, sub := range []string{"serve", "migrate", "sweep"} {
		assert.Contains(t, out, sub, "help missing %q command", sub)
	}
}

func TestRootCommand_PersistentConfigFlags(t *testing.T) {
	cmd := NewRootCmd()
	flags := cmd.PersistentFlags()

	for _, name := range []string{
		"config", "database-url", "http-addr", "metrics-addr", "log-format", "log-level",
		"session-secret", "session-issuer", "session-ttl", "verification-ttl", "reset-ttl",
		"sweep-interval", "require-active-login", "allowed-email-domains", "auto-migrate",
		"smtp-host", "smtp-port", "smtp-username", "smtp-password", "smtp-from",
	} {
		assert.NotNil(t, flags.Lookup(name), "missing --%s", name)
	}

	httpAddr, err := flags.GetString("http-addr")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", httpAddr)
}

func TestRootCommand_SubcommandsInheritConfigFlags(t *testing.T) {
	cmd := NewRootCmd()
	var serve *cobra.Command
	for _, sub := range cmd.Commands() {
		if sub.Name() == "serve" {
			serve = sub
		}
	}
	require.NotNil(t, serve)
	assert.NotNil(t, serve.InheritedFlags().Lookup("database-url"))
}
