package cli

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitbook-qa/gitbook-qa/internal/config"
)

func TestInitEnvCmd_Flags(t *testing.T) {
	assert.Equal(t, "init-env", initEnvCmd.Use)

	flag := initEnvCmd.Flags().Lookup("force")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
}

func TestInitEnv_WritesTemplate(t *testing.T) {
	resetCLIState(t)

	out, err := execute("init-env")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+envFile)

	data, err := os.ReadFile(envFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), config.EnvOpenAIKey+"=")
	assert.Contains(t, string(data), config.EnvDatabaseURL+"=")
}

func TestInitEnv_KeepsExistingFile(t *testing.T) {
	resetCLIState(t)
	require.NoError(t, os.WriteFile(envFile, []byte("OPENAI_API_KEY=sk-mine\n"), 0o600))

	_, err := execute("init-env")
	assert.ErrorIs(t, err, config.ErrEnvExists)

	data, err := os.ReadFile(envFile)
	require.NoError(t, err)
	assert.Equal(t, "OPENAI_API_KEY=sk-mine\n", string(data))

	_, err = execute("init-env", "--force")
	require.NoError(t, err)

	data, err = os.ReadFile(envFile)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sk-mine")
}
