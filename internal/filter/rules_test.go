package filter

import (
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile(t *testing.T) {
	fsys := memfs.New()
	content := `# build outputs
- *.o
+ keep.log
*.log

- /vendor/
`
	require.NoError(t, util.WriteFile(fsys, "/rules.txt", []byte(content), 0o644))

	c := NewChain()
	require.NoError(t, c.LoadFile(fsys, "/rules.txt"))
	assert.Len(t, c.Rules(), 4)

	assert.False(t, c.Match("main.o", false, 10))
	assert.True(t, c.Match("keep.log", false, 10))
	assert.False(t, c.Match("debug.log", false, 10))
	assert.False(t, c.Match("vendor", true, 0))
	assert.True(t, c.Match("src/vendor", true, 0))
}

func TestLoadFileErrors(t *testing.T) {
	fsys := memfs.New()
	c := NewChain()
	assert.Error(t, c.LoadFile(fsys, "/missing.txt"))

	require.NoError(t, util.WriteFile(fsys, "/bad.txt", []byte("*.ok\n- [x-\n"), 0o644))
	err := c.LoadFile(fsys, "/bad.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}
