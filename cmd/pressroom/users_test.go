package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func resetBootstrapFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		bootstrapAdminPassword = ""
		bootstrapAdminPasswordStdin = false
		bootstrapAdminGeneratePasswd = false
	})
}

func TestGeneratePassword(t *testing.T) {
	_, err := generatePassword(8)
	require.Error(t, err)

	a, err := generatePassword(24)
	require.NoError(t, err)
	require.Len(t, a, 24)
	b, err := generatePassword(24)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestResolveBootstrapPasswordSources(t *testing.T) {
	resetBootstrapFlags(t)

	bootstrapAdminPasswordStdin = true
	pw, generated, err := resolveBootstrapPassword(strings.NewReader("s3cret-pass\n"))
	require.NoError(t, err)
	require.Equal(t, "s3cret-pass", pw)
	require.False(t, generated)

	bootstrapAdminPasswordStdin = false
	bootstrapAdminGeneratePasswd = true
	pw, generated, err = resolveBootstrapPassword(strings.NewReader(""))
	require.NoError(t, err)
	require.Len(t, pw, 24)
	require.True(t, generated)
}

func TestResolveBootstrapPasswordRejectsConflicts(t *testing.T) {
	resetBootstrapFlags(t)

	bootstrapAdminPassword = "explicit"
	bootstrapAdminGeneratePasswd = true
	_, _, err := resolveBootstrapPassword(strings.NewReader(""))
	require.ErrorContains(t, err, "mutually exclusive")

	bootstrapAdminPassword = ""
	bootstrapAdminGeneratePasswd = false
	_, _, err = resolveBootstrapPassword(strings.NewReader(""))
	require.ErrorContains(t, err, "no password provided")
}

func TestRootRegistersCommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	require.True(t, names["serve"])
	require.True(t, names["migrate"])
	require.True(t, names["users"])

	cmd, _, err := rootCmd.Find([]string{"users", "bootstrap-admin"})
	require.NoError(t, err)
	require.Equal(t, "bootstrap-admin", cmd.Name())
	require.NotNil(t, cmd.Flags().Lookup("generate-password"))
}
