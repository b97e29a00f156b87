package extraction

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/payorders/internal/entity"
)

type countingExtractor struct {
	calls int
	err   error
}

func (c *countingExtractor) Extract(_ context.Context, _ Request) (Result, error) {
	c.calls++
	if c.err != nil {
		return Result{}, c.err
	}
	concept := "Papelería"
	return Result{
		Fields: entity.ExtractedFields{Concept: &concept},
		Raw:    []byte(`{"concept":"Papelería","confidence":"high"}`),
	}, nil
}

func TestCachedExtractor(t *testing.T) {
	ctx := context.Background()
	cache, err := OpenCache(ctx, ":memory:")
	require.NoError(t, err)
	defer cache.Close()

	next := &countingExtractor{}
	ext := NewCachedExtractor(next, cache, nil)
	req := Request{DocumentName: "a.pdf", ContentHash: "abc123"}

	first, err := ext.Extract(ctx, req)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := ext.Extract(ctx, req)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	require.NotNil(t, second.Fields.Concept)
	assert.Equal(t, "Papelería", *second.Fields.Concept)
	assert.Equal(t, 1, next.calls)

	t.Run("should bypass the cache without a content hash", func(t *testing.T) {
		_, err := ext.Extract(ctx, Request{DocumentName: "b.pdf"})
		require.NoError(t, err)
		assert.Equal(t, 2, next.calls)
	})
}

func TestCachedExtractorDoesNotStoreFailures(t *testing.T) {
	ctx := context.Background()
	cache, err := OpenCache(ctx, ":memory:")
	require.NoError(t, err)
	defer cache.Close()

	next := &countingExtractor{err: errors.New("service down")}
	ext := NewCachedExtractor(next, cache, nil)

	_, err = ext.Extract(ctx, Request{ContentHash: "h"})
	require.Error(t, err)

	_, ok, err := cache.Get(ctx, "h")
	require.NoError(t, err)
	assert.False(t, ok)
}
