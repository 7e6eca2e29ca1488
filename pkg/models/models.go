package models

import (
	"sort"
	"time"
)

const (
	// UnknownAuthorName is used when the author block is missing.
	UnknownAuthorName = "Unknown"
	// UnknownAuthorHandle is used when the author block has no second line.
	UnknownAuthorHandle = "@unknown"
	// UnknownDate stands in for the calendar date of a post without a timestamp.
	UnknownDate = "unknown"

	displayTimeFormat = "2006-01-02 15:04:05"
)

// Post is one bookmarked item as rendered on the timeline.
//
// A Post is built once by the extractor and never modified afterwards.
// QuotedPost is owned by its container and always carries a different ID.
type Post struct {
	ID           string   `json:"id"`
	AuthorName   string   `json:"author_name"`
	AuthorHandle string   `json:"author_handle"`
	Text         string   `json:"text"`
	Timestamp    string   `json:"timestamp"`
	URL          string   `json:"url"`
	Images       []string `json:"images"`
	Videos       []string `json:"videos"`
	QuotedPost   *Post    `json:"quoted_post,omitempty"`
}

// Date returns the calendar date part of the timestamp, or UnknownDate.
func (p *Post) Date() string {
	if len(p.Timestamp) >= 10 {
		return p.Timestamp[:10]
	}
	if p.Timestamp != "" {
		return p.Timestamp
	}
	return UnknownDate
}

// FormattedTime renders the timestamp for display in its own offset.
// Timestamps that are not RFC 3339 are returned unchanged.
func (p *Post) FormattedTime() string {
	t, err := time.Parse(time.RFC3339, p.Timestamp)
	if err != nil {
		return p.Timestamp
	}
	return t.Format(displayTimeFormat)
}

// SortByTimestampDesc returns a copy of posts ordered newest first.
// ISO-8601 strings compare chronologically, so the comparison is lexicographic;
// empty timestamps end up last. Equal timestamps keep their input order.
func SortByTimestampDesc(posts []*Post) []*Post {
	sorted := make([]*Post, len(posts))
	copy(sorted, posts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp > sorted[j].Timestamp
	})
	return sorted
}

// Chunk splits posts into consecutive slices of at most size elements.
func Chunk(posts []*Post, size int) [][]*Post {
	if size <= 0 {
		size = len(posts)
	}
	var chunks [][]*Post
	for start := 0; start < len(posts); start += size {
		end := start + size
		if end > len(posts) {
			end = len(posts)
		}
		chunks = append(chunks, posts[start:end])
	}
	return chunks
}
