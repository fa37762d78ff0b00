package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithoutAddrUsesMemory(t *testing.T) {
	c, err := New("", "", 0)
	require.NoError(t, err)
	_, ok := c.(*MemoryCache)
	assert.True(t, ok)
	assert.NoError(t, c.Ping(context.Background()))
}

func TestMemoryCacheMissAndExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryCache()

	_, err := m.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, m.Set(ctx, "short", "v", time.Nanosecond))
	time.Sleep(time.Millisecond)
	_, err = m.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, m.Set(ctx, "forever", "v", 0))
	got, err := m.Get(ctx, "forever")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestMemoryCacheDeletePrefix(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryCache()
	require.NoError(t, m.Set(ctx, "leap:content:c1:a", "1", 0))
	require.NoError(t, m.Set(ctx, "leap:content:c1:b", "2", 0))
	require.NoError(t, m.Set(ctx, "leap:content:c2:a", "3", 0))

	n, err := m.DeletePrefix(ctx, "leap:content:c1:")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	_, err = m.Get(ctx, "leap:content:c2:a")
	assert.NoError(t, err)
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryCache()

	type payload struct {
		Text string `json:"text"`
	}
	require.NoError(t, SetJSON(ctx, m, "k", payload{Text: "hello"}, time.Minute))

	var out payload
	require.NoError(t, GetJSON(ctx, m, "k", &out))
	assert.Equal(t, "hello", out.Text)
}

func TestEscapePattern(t *testing.T) {
	assert.Equal(t, `leap:content:a\*b\?:`, escapePattern("leap:content:a*b?:"))
}
