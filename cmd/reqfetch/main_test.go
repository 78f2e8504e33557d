package main

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlagsPriorityUnsetKeepsConfigDefault(t *testing.T) {
	f, err := parseFlags([]string{"-config", "cfg.yaml", "https://a.example"})
	require.NoError(t, err)
	assert.Nil(t, f.priority)
	assert.Equal(t, "cfg.yaml", f.configPath)
	assert.Equal(t, http.MethodGet, f.method)
	assert.Equal(t, []string{"https://a.example"}, f.urls)
}

func TestParseFlagsPriorityGiven(t *testing.T) {
	for _, p := range []int{0, 3, -1} {
		f, err := parseFlags([]string{"-priority", strconv.Itoa(p), "https://a.example"})
		require.NoError(t, err)
		require.NotNil(t, f.priority, "explicit -priority %d", p)
		assert.Equal(t, p, *f.priority)
	}
}

func TestParseFlagsRejectsUnknown(t *testing.T) {
	_, err := parseFlags([]string{"-nope"})
	assert.Error(t, err)
}
