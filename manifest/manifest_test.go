package manifest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestManifest(t *testing.T) {
	require := require.New(t)

	var zero Manifest
	require.Zero(zero.Len())
	require.Empty(zero.Paths())
	require.False(zero.Contains("__init__.py"))

	m := New("gpstk_pylib.py", "__init__.py")
	m.Add("cpp/__init__.py", "./__init__.py", "cpp//__init__.py")

	other := New("_gpstk_pylib.so", "gpstk_pylib.py")
	m.Merge(other)

	require.Equal([]string{"gpstk_pylib.py", "__init__.py", "cpp/__init__.py", "_gpstk_pylib.so"}, m.Paths())
	require.True(m.Contains("cpp/./__init__.py"))
	require.Equal(4, m.Len())

	paths := m.Paths()
	paths[0] = "changed"
	require.Equal("gpstk_pylib.py", m.Paths()[0])
}
