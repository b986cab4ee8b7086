package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveAPIKeyFromEnv(t *testing.T) {
	t.Setenv("DOCWEAVER_TEST_KEY", "secret")

	key, err := ResolveAPIKey("env", "", "DOCWEAVER_TEST_KEY")
	require.NoError(t, err)
	assert.Equal(t, "secret", key)
}

func TestResolveAPIKeyEnvUnset(t *testing.T) {
	t.Setenv("DOCWEAVER_TEST_KEY", "")

	_, err := ResolveAPIKey("env", "", "DOCWEAVER_TEST_KEY")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DOCWEAVER_TEST_KEY")
}

func TestResolveAPIKeyFromConfig(t *testing.T) {
	key, err := ResolveAPIKey("config", "sk-123", "")
	require.NoError(t, err)
	assert.Equal(t, "sk-123", key)
}

func TestResolveAPIKeyConfigEmpty(t *testing.T) {
	_, err := ResolveAPIKey("config", "", "")
	require.Error(t, err)
}

func TestResolveAPIKeyUnknownSource(t *testing.T) {
	_, err := ResolveAPIKey("vault", "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown api_key_source")
}
