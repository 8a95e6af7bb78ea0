package cache

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserResolverCache(t *testing.T) {
	c, err := NewUserResolverCache(2)
	require.NoError(t, err)

	c.SetUserID("a", snowflake.ID(1))
	c.SetUserID(" b ", snowflake.ID(2))
	c.SetUserID("", snowflake.ID(3))
	c.SetUserID("zero", 0)
	assert.Equal(t, 2, c.Len())

	id, ok := c.GetUserID("b")
	assert.True(t, ok)
	assert.Equal(t, snowflake.ID(2), id)

	// "a" is least recently used and gets evicted.
	c.SetUserID("c", snowflake.ID(4))
	_, ok = c.GetUserID("a")
	assert.False(t, ok)

	c.Forget("c")
	_, ok = c.GetUserID("c")
	assert.False(t, ok)
}

func TestNewUserResolverCacheDefaultsSize(t *testing.T) {
	c, err := NewUserResolverCache(0)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
}
