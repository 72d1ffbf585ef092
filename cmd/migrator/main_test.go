package main

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCmd(func(op func(db *sql.DB) error) error { return nil })

	names := make([]string, 0, len(root.Commands()))
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	for _, want := range []string{"up", "up-to", "down", "reset", "status", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestUpRunsThroughRunner(t *testing.T) {
	calls := 0
	root := newRootCmd(func(op func(db *sql.DB) error) error {
		calls++
		return nil
	})
	root.SetArgs([]string{"up"})

	require.NoError(t, root.Execute())
	assert.Equal(t, 1, calls)
}

func TestUpToRejectsInvalidVersion(t *testing.T) {
	calls := 0
	root := newRootCmd(func(op func(db *sql.DB) error) error {
		calls++
		return nil
	})
	root.SetArgs([]string{"up-to", "latest"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid version")
	assert.Zero(t, calls)
}
