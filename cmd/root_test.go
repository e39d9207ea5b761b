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

	for _, name := range []string{"fetch", "years", "serve"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "obligation-finder", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.NotNil(t, rootCmd.PersistentPreRunE)
	assert.NotNil(t, rootCmd.PersistentPostRun)
}

func TestFetchCommand_Flags(t *testing.T) {
	year := fetchCmd.Flags().Lookup("year")
	require.NotNil(t, year, "fetch command should have --year flag")
	assert.Equal(t, "stringSlice", year.Value.Type())

	output := fetchCmd.Flags().Lookup("output")
	require.NotNil(t, output)
	assert.Equal(t, "table", output.DefValue)
	assert.Equal(t, "o", output.Shorthand)

	out := fetchCmd.Flags().Lookup("out")
	require.NotNil(t, out)
	assert.Equal(t, "", out.DefValue)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}
