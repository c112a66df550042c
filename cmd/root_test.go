package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"serve", "advise", "batch"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "agri-advisor", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestAdviseCommand_Flags(t *testing.T) {
	for _, name := range []string{"query", "session", "soil-type", "ph", "moisture", "temp", "rainfall", "humidity"} {
		require.NotNil(t, adviseCmd.Flags().Lookup(name), "advise command should have --%s flag", name)
	}
}

func TestBatchCommand_Flags(t *testing.T) {
	flag := batchCmd.Flags().Lookup("limit")
	require.NotNil(t, flag, "batch command should have --limit flag")
	assert.Equal(t, "0", flag.DefValue)

	require.NotNil(t, batchCmd.Flags().Lookup("in"))
	out := batchCmd.Flags().Lookup("out")
	require.NotNil(t, out)
	assert.Equal(t, "-", out.DefValue)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}
