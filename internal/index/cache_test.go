package index

import (
	"testing"

	"github.com/mvp-joe/hackdecl/internal/decl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeclCache(t *testing.T) {
	t.Parallel()

	c, err := NewDeclCache(16)
	require.NoError(t, err)
	require.NotNil(t, c)
	defer c.Close()

	key := Key("hack", []byte("<?hh\nfunction f() {}"))
	_, ok := c.Get(key)
	assert.False(t, ok)

	d := decl.Canonicalize(&decl.ScanOutput{Root: &decl.Root{Kind: "script"}})
	c.Set(key, d)

	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Same(t, d, got)

	assert.Equal(t, int64(1), c.Hits())
	assert.Equal(t, int64(1), c.Misses())
}

func TestDeclCache_Disabled(t *testing.T) {
	t.Parallel()

	c, err := NewDeclCache(0)
	require.NoError(t, err)
	assert.Nil(t, c)

	c.Set("k", &decl.Decls{})
	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Zero(t, c.Hits())
	c.Close()
}

func TestKey(t *testing.T) {
	t.Parallel()

	text := []byte("<?hh")
	assert.Equal(t, Key("hack", text), Key("hack", text))
	assert.NotEqual(t, Key("hack", text), Key("php", text))
	assert.NotEqual(t, Key("hack", text), Key("hack", []byte("<?hh ")))
	assert.Len(t, Key("hack", text), 64)
}
