package tty

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestExclusionFilterResolvesStreamInode(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out"))
	require.NoError(t, err)
	defer f.Close()

	var st unix.Stat_t
	require.NoError(t, unix.Fstat(int(f.Fd()), &st))

	filter, err := NewExclusionFilter(f)
	require.NoError(t, err)

	assert.True(t, filter.Excluded(st.Ino))
	assert.False(t, filter.Excluded(st.Ino+1))
	assert.False(t, filter.Excluded(0))
}

func TestExclusionFilterMultipleStreams(t *testing.T) {
	dir := t.TempDir()
	out, err := os.Create(filepath.Join(dir, "stdout"))
	require.NoError(t, err)
	defer out.Close()
	errStream, err := os.Create(filepath.Join(dir, "stderr"))
	require.NoError(t, err)
	defer errStream.Close()

	filter, err := NewExclusionFilter(out, errStream)
	require.NoError(t, err)

	for _, f := range []*os.File{out, errStream} {
		var st unix.Stat_t
		require.NoError(t, unix.Fstat(int(f.Fd()), &st))
		assert.True(t, filter.Excluded(st.Ino))
	}
}

func TestExclusionFilterOf(t *testing.T) {
	filter := exclusionFilterOf(42, 99)
	assert.True(t, filter.Excluded(42))
	assert.True(t, filter.Excluded(99))
	assert.False(t, filter.Excluded(100))
}
