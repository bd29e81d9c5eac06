package reporter

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileRunHandle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "run.json")
	h := NewFileRunHandle(path)

	t.Run("get before set is nil", func(t *testing.T) {
		ref, err := h.Get()
		require.NoError(t, err)
		assert.Nil(t, ref)
	})

	t.Run("set then get round trip", func(t *testing.T) {
		startedAt := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
		require.NoError(t, h.Set(&RunRef{RunID: "run-42", StartedAt: startedAt}))

		ref, err := h.Get()
		require.NoError(t, err)
		require.NotNil(t, ref)
		assert.Equal(t, "run-42", ref.RunID)
		assert.True(t, ref.StartedAt.Equal(startedAt))
	})

	t.Run("visible to a second handle on the same path", func(t *testing.T) {
		ref, err := NewFileRunHandle(path).Get()
		require.NoError(t, err)
		require.NotNil(t, ref)
		assert.Equal(t, "run-42", ref.RunID)
	})

	t.Run("clear removes the reference", func(t *testing.T) {
		require.NoError(t, h.Clear())
		require.NoError(t, h.Clear()) // idempotent

		ref, err := h.Get()
		require.NoError(t, err)
		assert.Nil(t, ref)
	})
}

func TestFileRunHandle_EnvFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	h := NewFileRunHandle(path)

	t.Setenv(RunIDEnvVar, "run-from-env")

	ref, err := h.Get()
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, "run-from-env", ref.RunID)
	assert.True(t, ref.StartedAt.IsZero())

	// The state file wins over the environment once present.
	require.NoError(t, h.Set(&RunRef{RunID: "run-from-file"}))

	ref, err = h.Get()
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, "run-from-file", ref.RunID)
}

func TestFileRunHandle_GitHubEnvExport(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, "github_env")

	require.NoError(t, os.WriteFile(envFile, []byte("EXISTING=1\n"), 0o644))
	t.Setenv("GITHUB_ENV", envFile)

	h := NewFileRunHandle(filepath.Join(tmpDir, "run.json"))
	require.NoError(t, h.Set(&RunRef{RunID: "run-42", StartedAt: time.Now()}))

	data, err := os.ReadFile(envFile)
	require.NoError(t, err)
	assert.Equal(t, "EXISTING=1\n"+RunIDEnvVar+"=run-42\n", string(data))
}

func TestMemoryRunHandle(t *testing.T) {
	h := NewMemoryRunHandle()

	ref, err := h.Get()
	require.NoError(t, err)
	assert.Nil(t, ref)

	require.NoError(t, h.Set(&RunRef{RunID: "run-1"}))

	ref, err = h.Get()
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, "run-1", ref.RunID)

	require.NoError(t, h.Clear())

	ref, err = h.Get()
	require.NoError(t, err)
	assert.Nil(t, ref)
}
