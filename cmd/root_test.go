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

	for _, name := range []string{"dbfdump", "boundaries", "census", "extract", "query", "stats"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "places-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestDbfdumpCommand_Flags(t *testing.T) {
	require.NotNil(t, dbfdumpCmd.Flags().Lookup("encoding"))
	require.NotNil(t, dbfdumpCmd.Flags().Lookup("fields"))
}

func TestBoundariesCommand_Flags(t *testing.T) {
	flag := boundariesCmd.Flags().Lookup("out")
	require.NotNil(t, flag)
	assert.Equal(t, "boundaries.geojson", flag.DefValue)
	require.NotNil(t, boundariesCmd.Flags().Lookup("tolerance"))
}

func TestExtractCommand_Flags(t *testing.T) {
	for _, name := range []string{"countries", "countries-file", "out", "concurrency", "db"} {
		assert.NotNil(t, extractCmd.Flags().Lookup(name), "extract should have --%s flag", name)
	}
}

func TestQueryCommand_Flags(t *testing.T) {
	flag := queryCmd.Flags().Lookup("limit")
	require.NotNil(t, flag)
	assert.Equal(t, "1000", flag.DefValue)
	require.NotNil(t, queryCmd.Flags().Lookup("bbox"))
	require.NotNil(t, queryCmd.Flags().Lookup("min-confidence"))
}

func TestCharsetDecoder(t *testing.T) {
	dec, err := charsetDecoder("")
	require.NoError(t, err)
	assert.Nil(t, dec)

	dec, err = charsetDecoder("utf-8")
	require.NoError(t, err)
	assert.Nil(t, dec)

	dec, err = charsetDecoder("windows-1252")
	require.NoError(t, err)
	assert.NotNil(t, dec)

	_, err = charsetDecoder("no-such-charset")
	assert.Error(t, err)
}

func TestSplitAndTrim(t *testing.T) {
	assert.Equal(t, []string{"NZ", "AU"}, splitAndTrim("NZ, AU"))
	assert.Equal(t, []string{"GB"}, splitAndTrim(",GB,,"))
	assert.Nil(t, splitAndTrim(""))
}
