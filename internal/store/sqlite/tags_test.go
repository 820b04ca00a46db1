package sqlite

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Seed(ctx))
	tags, err := s.ListTags(ctx)
	require.NoError(t, err)
	count := len(tags)
	require.NotZero(t, count)

	// Seeding again must not duplicate the vocabulary.
	require.NoError(t, s.Seed(ctx))
	tags, err = s.ListTags(ctx)
	require.NoError(t, err)
	assert.Len(t, tags, count)
}

func TestListTagsOrderedByName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Seed(ctx))

	tags, err := s.ListTags(ctx)
	require.NoError(t, err)

	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		names = append(names, tag.Name)
	}
	assert.True(t, sort.StringsAreSorted(names))
}

func TestSeededTagShape(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Seed(ctx))

	tags, err := s.ListTags(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, tags)

	for _, tag := range tags {
		assert.Equal(t, "category", tag.Kind)
		assert.NotEmpty(t, tag.Name)
		assert.NotEmpty(t, tag.BgColor)
		assert.NotEmpty(t, tag.TextColor)
	}
}
