package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	t.Parallel()
	m := Default("/home/user")
	require.NoError(t, m.Validate())
	assert.Equal(t, "/home/user/.launcher", m.DataDir)
	assert.Equal(t, "/home/user/.launcher/launcher.lock", m.LockPath())
	assert.Equal(t, 17, m.Runtime.Major)
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	t.Parallel()
	m := Default("/home/user")
	m.DataDir = " "
	m.Runtime.Major = 0
	m.ReleaseType = "nightly"
	m.Dependencies.Archive = "deps.tar.zst"
	m.Dependencies.Version = ""

	err := m.Validate()
	require.Error(t, err)
	for _, want := range []string{"data_dir", "runtime.major", "release_type", "dependencies.version"} {
		assert.Contains(t, err.Error(), want)
	}
}
