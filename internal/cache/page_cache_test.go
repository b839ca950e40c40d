package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexKey(t *testing.T) {
	assert.Equal(t, "index:page=:viewer=0", IndexKey("", 0))
	assert.Equal(t, "index:page=2:viewer=5", IndexKey("2", 5))
	assert.NotEqual(t, IndexKey("2", 5), IndexKey("2", 6))
	assert.Equal(t, "index:page=a%3Ab:viewer=0", IndexKey("a:b", 0))
}

func TestNopPageCache(t *testing.T) {
	var c PageCache = NopPageCache{}
	require.NoError(t, c.Set(context.Background(), "k", []byte("page")))

	page, hit, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Nil(t, page)
}
