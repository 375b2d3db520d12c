package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFlagStorePersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()

	first, err := NewFlagStore(dir)
	require.NoError(t, err)
	require.False(t, first.IsSet("visited"))
	require.NoError(t, first.Set("visited"))
	require.True(t, first.IsSet("visited"))

	second, err := NewFlagStore(dir)
	require.NoError(t, err)
	require.True(t, second.IsSet("visited"))
	require.False(t, second.IsSet("other"))
}

func TestFlagStoreCreatesStateDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "state")

	fs, err := NewFlagStore(dir)
	require.NoError(t, err)
	require.NoError(t, fs.Set("visited"))

	_, err = os.Stat(filepath.Join(dir, "flags.json"))
	require.NoError(t, err)
}

func TestFlagStoreSurvivesCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "flags.json"), []byte("{not json"), 0o644))

	fs, err := NewFlagStore(dir)
	require.NoError(t, err)
	require.False(t, fs.IsSet("visited"))
	require.NoError(t, fs.Set("visited"))

	reloaded, err := NewFlagStore(dir)
	require.NoError(t, err)
	require.True(t, reloaded.IsSet("visited"))
}
