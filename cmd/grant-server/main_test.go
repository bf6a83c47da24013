package main

import (
	"testing"

	"github.com/jessevdk/go-flags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOptions(t *testing.T) {
	opts, err := parseOptions([]string{"-c", "conf/prod.yaml", "--dotenv", "--issue-token", "ops"})
	require.NoError(t, err)
	assert.Equal(t, "conf/prod.yaml", opts.Config)
	assert.True(t, opts.DotEnv)
	assert.Equal(t, "ops", opts.Operator)

	opts, err = parseOptions(nil)
	require.NoError(t, err)
	assert.Empty(t, opts.Config)
}

func TestParseOptionsRejectsUnknownFlag(t *testing.T) {
	_, err := parseOptions([]string{"--verbose-mode"})
	var flagErr *flags.Error
	require.ErrorAs(t, err, &flagErr)
	assert.Equal(t, flags.ErrUnknownFlag, flagErr.Type)
}
