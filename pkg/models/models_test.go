package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostDate(t *testing.T) {
	tests := []struct {
		name      string
		timestamp string
		want      string
	}{
		{"full timestamp", "2024-01-03T10:00:00.000Z", "2024-01-03"},
		{"empty", "", UnknownDate},
		{"short", "2024-01", "2024-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Post{Timestamp: tt.timestamp}
			assert.Equal(t, tt.want, p.Date())
		})
	}
}

func TestPostFormattedTime(t *testing.T) {
	assert.Equal(t, "2024-01-03 10:00:00", (&Post{Timestamp: "2024-01-03T10:00:00.000Z"}).FormattedTime())
	assert.Equal(t, "2024-01-03 10:00:00", (&Post{Timestamp: "2024-01-03T10:00:00+02:00"}).FormattedTime())
	assert.Equal(t, "yesterday", (&Post{Timestamp: "yesterday"}).FormattedTime())
}

func TestSortByTimestampDesc(t *testing.T) {
	posts := []*Post{
		{ID: "a", Timestamp: "2024-01-01T09:00:00Z"},
		{ID: "b", Timestamp: ""},
		{ID: "c", Timestamp: "2024-01-03T10:00:00Z"},
		{ID: "d", Timestamp: "2024-01-02T08:00:00Z"},
		{ID: "e", Timestamp: ""},
		{ID: "f", Timestamp: "2024-01-02T08:00:00Z"},
	}

	sorted := SortByTimestampDesc(posts)

	var ids []string
	for _, p := range sorted {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"c", "d", "f", "a", "b", "e"}, ids)

	// input order is untouched
	assert.Equal(t, "a", posts[0].ID)
	assert.Equal(t, "f", posts[5].ID)
}

func TestChunkIsExhaustiveAndOrdered(t *testing.T) {
	var posts []*Post
	for i := 0; i < 7; i++ {
		posts = append(posts, &Post{ID: string(rune('a' + i))})
	}

	for size := 1; size <= 8; size++ {
		chunks := Chunk(posts, size)

		var rebuilt []*Post
		for i, c := range chunks {
			require.NotEmpty(t, c)
			require.LessOrEqual(t, len(c), size)
			if i < len(chunks)-1 {
				require.Len(t, c, size)
			}
			rebuilt = append(rebuilt, c...)
		}
		assert.Equal(t, posts, rebuilt, "size %d", size)
	}

	assert.Empty(t, Chunk(nil, 3))
}
