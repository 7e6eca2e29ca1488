package extractor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bmexport/pkg/logger"
	"bmexport/pkg/models"
	"bmexport/pkg/page"
	"bmexport/pkg/page/snapshot"
)

const fullPost = `<html><body>
<article data-testid="tweet">
  <div data-testid="User-Name"><div><span>Ada Lovelace</span></div><div><span>@ada</span></div></div>
  <a href="/ada/status/100"><time datetime="2024-01-02T08:00:00.000Z">Jan 2</time></a>
  <div data-testid="tweetText"><span>first line</span><br><span>second line</span></div>
  <img src="https://pbs.twimg.com/media/AAA?format=jpg&name=small">
  <img src="https://pbs.twimg.com/media/AAA?format=jpg&name=medium">
  <img src="https://pbs.twimg.com/media/BBB?name=thumb">
  <img src="https://abs.twimg.com/emoji/1f600.svg">
</article>
</body></html>`

const quotingPost = `<html><body>
<article data-testid="tweet">
  <div data-testid="User-Name"><div>Outer</div><div>@outer</div></div>
  <a href="/outer/status/200">link</a>
  <div data-testid="tweetText">look at this</div>
  <div role="link" tabindex="0">
    <article data-testid="tweet">
      <div data-testid="User-Name"><div>Inner</div><div>@inner</div></div>
      <a href="/inner/status/300"><time datetime="2023-12-31T23:00:00.000Z">Dec 31</time></a>
      <div data-testid="tweetText">quoted body</div>
    </article>
  </div>
</article>
</body></html>`

const selfQuotingPost = `<html><body>
<article data-testid="tweet">
  <a href="/loop/status/400">link</a>
  <div role="link" tabindex="0">
    <article data-testid="tweet"><a href="/loop/status/400">again</a></article>
  </div>
</article>
</body></html>`

const doublyNestedPost = `<html><body>
<article data-testid="tweet">
  <a href="/a/status/1">a</a>
  <div role="link" tabindex="0">
    <article data-testid="tweet">
      <a href="/b/status/2">b</a>
      <div role="link" tabindex="0">
        <article data-testid="tweet"><a href="/c/status/3">c</a></article>
      </div>
    </article>
  </div>
</article>
</body></html>`

func renderedPosts(t *testing.T, html string) (context.Context, []page.Node) {
	t.Helper()
	ctx := context.Background()
	p, err := snapshot.New([][]byte{[]byte(html)})
	require.NoError(t, err)
	nodes, err := p.QueryAll(ctx, PostSelector)
	require.NoError(t, err)
	require.NotEmpty(t, nodes)
	return ctx, nodes
}

func TestExtractFullPost(t *testing.T) {
	ctx, nodes := renderedPosts(t, fullPost)
	e := New(logger.NewTestLogger(), DefaultOptions())

	post, err := e.Extract(ctx, nodes[0])
	require.NoError(t, err)
	require.NotNil(t, post)

	assert.Equal(t, "100", post.ID)
	assert.Equal(t, "https://x.com/ada/status/100", post.URL)
	assert.Equal(t, "Ada Lovelace", post.AuthorName)
	assert.Equal(t, "@ada", post.AuthorHandle)
	assert.Equal(t, "first line\nsecond line", post.Text)
	assert.Equal(t, "2024-01-02T08:00:00.000Z", post.Timestamp)
	assert.Equal(t, []string{
		"https://pbs.twimg.com/media/AAA?format=jpg&name=large",
		"https://pbs.twimg.com/media/BBB?name=large",
	}, post.Images)
	assert.Empty(t, post.Videos)
	assert.Nil(t, post.QuotedPost)
}

func TestExtractWithoutPermalink(t *testing.T) {
	ctx, nodes := renderedPosts(t, `<article data-testid="tweet"><a href="/ada">profile</a></article>`)
	e := New(logger.NewTestLogger(), DefaultOptions())

	post, err := e.Extract(ctx, nodes[0])
	require.NoError(t, err)
	assert.Nil(t, post)
}

func TestExtractDefaults(t *testing.T) {
	ctx, nodes := renderedPosts(t, `<article data-testid="tweet"><a href="/x/status/9?s=20">x</a></article>`)
	e := New(logger.NewTestLogger(), DefaultOptions())

	post, err := e.Extract(ctx, nodes[0])
	require.NoError(t, err)
	require.NotNil(t, post)
	assert.Equal(t, "9", post.ID)
	assert.Equal(t, models.UnknownAuthorName, post.AuthorName)
	assert.Equal(t, models.UnknownAuthorHandle, post.AuthorHandle)
	assert.Empty(t, post.Text)
	assert.Empty(t, post.Timestamp)
}

func TestExtractQuotedPost(t *testing.T) {
	ctx, nodes := renderedPosts(t, quotingPost)
	e := New(logger.NewTestLogger(), DefaultOptions())

	post, err := e.Extract(ctx, nodes[0])
	require.NoError(t, err)
	require.NotNil(t, post)
	assert.Equal(t, "200", post.ID)

	require.NotNil(t, post.QuotedPost)
	assert.Equal(t, "300", post.QuotedPost.ID)
	assert.Equal(t, "Inner", post.QuotedPost.AuthorName)
	assert.Equal(t, "@inner", post.QuotedPost.AuthorHandle)
	assert.Equal(t, "quoted body", post.QuotedPost.Text)
	assert.Equal(t, "https://x.com/inner/status/300", post.QuotedPost.URL)
}

func TestExtractSelfQuoteIsDropped(t *testing.T) {
	ctx, nodes := renderedPosts(t, selfQuotingPost)
	e := New(logger.NewTestLogger(), DefaultOptions())

	post, err := e.Extract(ctx, nodes[0])
	require.NoError(t, err)
	require.NotNil(t, post)
	assert.Equal(t, "400", post.ID)
	assert.Nil(t, post.QuotedPost)
}

func TestExtractQuoteDepth(t *testing.T) {
	tests := []struct {
		name      string
		depth     int
		wantInner bool
		wantDeep  bool
	}{
		{"no quotes", 0, false, false},
		{"one level", 1, true, false},
		{"two levels", 2, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, nodes := renderedPosts(t, doublyNestedPost)
			opts := DefaultOptions()
			opts.MaxQuoteDepth = tt.depth
			e := New(logger.NewTestLogger(), opts)

			post, err := e.Extract(ctx, nodes[0])
			require.NoError(t, err)
			require.NotNil(t, post)
			assert.Equal(t, "1", post.ID)

			if !tt.wantInner {
				assert.Nil(t, post.QuotedPost)
				return
			}
			require.NotNil(t, post.QuotedPost)
			assert.Equal(t, "2", post.QuotedPost.ID)
			if tt.wantDeep {
				require.NotNil(t, post.QuotedPost.QuotedPost)
				assert.Equal(t, "3", post.QuotedPost.QuotedPost.ID)
			} else {
				assert.Nil(t, post.QuotedPost.QuotedPost)
			}
		})
	}
}

func TestExtractVideos(t *testing.T) {
	tests := []struct {
		name string
		html string
		want []string
	}{
		{
			name: "embed wins over native video",
			html: `<article data-testid="tweet"><a href="/v/status/1">v</a>
				<iframe src="https://www.youtube.com/embed/abc"></iframe>
				<iframe src="https://www.youtube.com/embed/abc"></iframe>
				<video src="blob:x"></video></article>`,
			want: []string{"https://www.youtube.com/embed/abc"},
		},
		{
			name: "vimeo embed",
			html: `<article data-testid="tweet"><a href="/v/status/1">v</a>
				<iframe src="https://player.vimeo.com/video/42"></iframe></article>`,
			want: []string{"https://player.vimeo.com/video/42"},
		},
		{
			name: "card links to video hosts",
			html: `<article data-testid="tweet"><a href="/v/status/1">v</a>
				<div data-testid="card.wrapper">
				  <a href="https://youtu.be/xyz">yt</a>
				  <a href="https://example.com/article">not a video</a>
				  <a href="https://www.dailymotion.com/video/q">dm</a>
				  <a href="https://youtu.be/xyz">dup</a>
				</div><video></video></article>`,
			want: []string{"https://youtu.be/xyz", "https://www.dailymotion.com/video/q"},
		},
		{
			name: "native video falls back to permalink",
			html: `<article data-testid="tweet"><a href="/v/status/1">v</a><video></video></article>`,
			want: []string{"https://x.com/v/status/1"},
		},
		{
			name: "no video",
			html: `<article data-testid="tweet"><a href="/v/status/1">v</a></article>`,
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, nodes := renderedPosts(t, tt.html)
			e := New(logger.NewTestLogger(), DefaultOptions())

			post, err := e.Extract(ctx, nodes[0])
			require.NoError(t, err)
			require.NotNil(t, post)
			assert.Equal(t, tt.want, post.Videos)
		})
	}
}

func TestStatusID(t *testing.T) {
	tests := []struct {
		href string
		want string
	}{
		{"/ada/status/123", "123"},
		{"/ada/status/123?s=20", "123"},
		{"/ada/status/123/photo/1", "123"},
		{"https://x.com/ada/status/456", "456"},
		{"/ada/status/", ""},
		{"/ada", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.href, func(t *testing.T) {
			assert.Equal(t, tt.want, statusID(tt.href))
		})
	}
}

func TestAbsoluteURL(t *testing.T) {
	e := New(nil, Options{BaseURL: "https://twitter.com/"})
	assert.Equal(t, "https://twitter.com/a/status/1", e.absolute("/a/status/1"))
	assert.Equal(t, "https://twitter.com/a/status/1", e.absolute("a/status/1"))
	assert.Equal(t, "https://x.com/a/status/1", e.absolute("https://x.com/a/status/1"))
}

func TestLargeImageURL(t *testing.T) {
	assert.Equal(t, "https://pbs.twimg.com/media/A?format=png&name=large",
		LargeImageURL("https://pbs.twimg.com/media/A?format=png&name=900x900"))
	assert.Equal(t, "https://pbs.twimg.com/media/A?name=large",
		LargeImageURL("https://pbs.twimg.com/media/A?name=small"))
	assert.Equal(t, "https://pbs.twimg.com/media/A.jpg",
		LargeImageURL("https://pbs.twimg.com/media/A.jpg"))
}

// panickyNode blows up on any access
type panickyNode struct{}

func (panickyNode) QueryAll(ctx context.Context, selector string) ([]page.Node, error) {
	panic("detached node")
}

func (panickyNode) Attribute(ctx context.Context, name string) (string, bool, error) {
	panic("detached node")
}

func (panickyNode) InnerText(ctx context.Context) (string, error) {
	panic("detached node")
}

type listPage struct {
	nodes []page.Node
}

func (l listPage) QueryAll(ctx context.Context, selector string) ([]page.Node, error) {
	return l.nodes, nil
}

func TestExtractRecoversFromPanic(t *testing.T) {
	e := New(logger.NewTestLogger(), DefaultOptions())

	post, err := e.Extract(context.Background(), panickyNode{})
	assert.Nil(t, post)
	assert.Error(t, err)
}

func TestExtractAllSkipsBadNodes(t *testing.T) {
	ctx, nodes := renderedPosts(t, fullPost)
	log := logger.NewTestLogger()
	e := New(log, DefaultOptions())

	posts, err := e.ExtractAll(ctx, listPage{nodes: []page.Node{panickyNode{}, nodes[0]}})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "100", posts[0].ID)
	assert.True(t, log.HasMessage("Error parsing post"))
}

func TestExtractAllDocument(t *testing.T) {
	html := `<html><body>
	<article data-testid="tweet"><a href="/a/status/1">1</a></article>
	<article data-testid="tweet"><span>promoted, no permalink</span></article>
	<article data-testid="tweet"><a href="/b/status/2">2</a></article>
	</body></html>`
	p, err := snapshot.New([][]byte{[]byte(html)})
	require.NoError(t, err)

	e := New(logger.NewTestLogger(), DefaultOptions())
	posts, err := e.ExtractAll(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "1", posts[0].ID)
	assert.Equal(t, "2", posts[1].ID)
}

// unmountedQuoteNode fails every lookup of the quote card, the way a live
// node does once the timeline has recycled it
type unmountedQuoteNode struct {
	page.Node
}

func (n unmountedQuoteNode) QueryAll(ctx context.Context, selector string) ([]page.Node, error) {
	if selector == quoteSelector {
		return nil, errors.New("node is detached from document")
	}
	return n.Node.QueryAll(ctx, selector)
}

func TestExtractLogsQuoteLookupFailure(t *testing.T) {
	ctx, nodes := renderedPosts(t, quotingPost)
	log := logger.NewTestLogger()
	e := New(log, DefaultOptions())

	post, err := e.Extract(ctx, unmountedQuoteNode{nodes[0]})
	require.NoError(t, err)
	require.NotNil(t, post)
	assert.Equal(t, "200", post.ID)
	assert.Nil(t, post.QuotedPost)

	debug := log.GetMessagesByLevel("DEBUG")
	require.Len(t, debug, 1)
	assert.Equal(t, "Error looking for quote card", debug[0].Message)
}
