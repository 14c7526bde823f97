package page

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/japaniel/wordcard/pkg/wordcard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const articleHTML = `<!DOCTYPE html>
<html><head><title>  Reading
 list </title></head>
<body>
<div id="main">
  <p id="first">The quick brown fox jumps. It runs <b id="bold">far away</b> today!</p>
  <ul><li id="item">An ordinary item.</li></ul>
  <span id="lone">Lone span text</span>
  <script>var fox = "fox";</script>
</div>
<iframe src="/frame/a"></iframe>
<iframe src="/frame/a#again"></iframe>
<iframe src="https://other.example.org/frame"></iframe>
<iframe src="frame/b"></iframe>
</body></html>`

func mustParse(t *testing.T, raw, pageURL string) *Document {
	t.Helper()
	doc, err := Parse([]byte(raw), pageURL)
	require.NoError(t, err)
	return doc
}

func TestParseWithoutURL(t *testing.T) {
	doc := mustParse(t, articleHTML, "")
	assert.Equal(t, "Reading list", doc.Title)
	assert.Equal(t, "", doc.Host())
	assert.Equal(t, "", doc.Source())
	assert.Nil(t, doc.SameOriginFrames())
}

func TestParseRejectsBadURL(t *testing.T) {
	_, err := Parse([]byte(articleHTML), "http://bad host/%zz")
	require.Error(t, err)
}

func TestParseStripsRuby(t *testing.T) {
	doc := mustParse(t, `<p id="r"><ruby>漢<rp>(</rp><rt>kan</rt><rp>)</rp></ruby> reading</p>`, "")
	p := doc.Doc.Find("#r").Get(0)
	assert.Equal(t, "漢 reading", NewElement(p).Text())
}

func TestElementAdapter(t *testing.T) {
	doc := mustParse(t, articleHTML, "")

	bold := NewElement(doc.Doc.Find("#bold").Get(0))
	assert.Equal(t, "b", bold.TagName())
	assert.Equal(t, "p", bold.Parent().TagName())

	root := doc.Root()
	assert.Equal(t, wordcard.DocumentTag, root.TagName())
	assert.Nil(t, root.Parent())

	div := NewElement(doc.Doc.Find("#main").Get(0))
	text := div.Text()
	assert.Contains(t, text, "The quick brown fox jumps. It runs far away today!\n")
	assert.Contains(t, text, "An ordinary item.")
	assert.NotContains(t, text, "var fox")

	assert.Nil(t, NewElement(nil))
}

func TestElementHasClass(t *testing.T) {
	doc := mustParse(t, `<em id="e" class="x wc-highlight  y">word</em>`, "")
	el := NewElement(doc.Doc.Find("#e").Get(0))
	assert.True(t, el.HasClass("wc-highlight"))
	assert.True(t, el.HasClass("y"))
	assert.False(t, el.HasClass("wc"))
}

func TestElementEditable(t *testing.T) {
	doc := mustParse(t, `<div contenteditable="true"><span id="in">typing</span></div>
<div contenteditable="false"><span id="off">reading</span></div>
<textarea id="ta">text</textarea>
<p id="plain">plain</p>`, "")

	cases := map[string]bool{"#in": true, "#off": false, "#ta": true, "#plain": false}
	for sel, want := range cases {
		el := NewElement(doc.Doc.Find(sel).Get(0))
		assert.Equal(t, want, el.Editable(), sel)
	}
}

func TestFindTarget(t *testing.T) {
	doc := mustParse(t, articleHTML, "")

	target := doc.FindTarget("far")
	require.NotNil(t, target)
	assert.Equal(t, "b", target.TagName())

	target = doc.FindTarget("fox")
	require.NotNil(t, target)
	assert.Equal(t, "p", target.TagName())

	assert.Nil(t, doc.FindTarget("zebra"))
	assert.Nil(t, doc.FindTarget(""))
	// Title text lives in head and is not a click target.
	assert.Nil(t, doc.FindTarget("Reading"))
}

func TestFindTargetFeedsSurroundings(t *testing.T) {
	doc := mustParse(t, articleHTML, "")
	target := doc.FindTarget("far")
	require.NotNil(t, target)

	got := wordcard.Surroundings("far", target, wordcard.ContextOptions{Autocut: true, SentenceNum: 1})
	assert.Equal(t, "It runs far away today! ", got)

	got = wordcard.Surroundings("far", target, wordcard.ContextOptions{})
	assert.Equal(t, "The quick brown fox jumps. It runs far away today!", got)
}

func TestSameOriginFrames(t *testing.T) {
	doc := mustParse(t, articleHTML, "https://example.com/articles/one")
	assert.Equal(t, "example.com", doc.Host())
	assert.Equal(t, []string{
		"https://example.com/frame/a",
		"https://example.com/articles/frame/b",
	}, doc.SameOriginFrames())
}

func TestHTMLRendersChanges(t *testing.T) {
	doc := mustParse(t, `<p id="x">hello</p>`, "")
	doc.Doc.Find("#x").SetText("changed")
	out, err := doc.HTML()
	require.NoError(t, err)
	assert.Contains(t, out, `<p id="x">changed</p>`)
}

func TestFetch(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/article":
			gotUA = r.Header.Get("User-Agent")
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(articleHTML))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	doc, err := Fetch(context.Background(), srv.Client(), srv.URL+"/article")
	require.NoError(t, err)
	assert.Equal(t, UserAgent, gotUA)
	assert.Equal(t, "127.0.0.1", doc.Host())
	assert.Equal(t, srv.URL+"/article", doc.Source())
	assert.NotNil(t, doc.FindTarget("fox"))

	_, err = Fetch(context.Background(), srv.Client(), srv.URL+"/missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 404")
}

func TestFetchBodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// No Content-Length: the limit has to trip while reading.
		w.Header().Set("Content-Type", "text/html")
		chunk := strings.Repeat("a", 1024*1024)
		for i := 0; i <= MaxBodySize/len(chunk); i++ {
			_, _ = w.Write([]byte(chunk))
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}
	}))
	defer srv.Close()

	_, err := Fetch(context.Background(), srv.Client(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum size limit")
}

func TestMarkdown(t *testing.T) {
	doc := mustParse(t, `<html><body><h1>Notes</h1><p>A <b>lucid</b> account.</p></body></html>`, "")
	md, err := doc.Markdown()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(md, "# Notes"), md)
	assert.Contains(t, md, "**lucid**")
	assert.NotContains(t, md, "<p>")
}
