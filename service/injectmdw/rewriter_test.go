package injectmdw_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/backdrop-labs/backdrop-proxy-service/service/injectmdw"
)

func transform(t *testing.T, rw *injectmdw.Rewriter, input string) string {
	t.Helper()

	var out bytes.Buffer
	require.NoError(t, rw.Transform(&out, strings.NewReader(input)))

	return out.String()
}

func TestUnitTestRewriterCopiesDocumentWithoutHandlersVerbatim(t *testing.T) {
	input := "<!DOCTYPE html>\n<HTML lang=en><Head><!-- c --><TITLE>a &amp; b</TITLE></Head>" +
		"<BODY class='x'><p>caf&eacute; <br/>text</BODY></HTML>\n"

	require.Equal(t, input, transform(t, injectmdw.NewRewriter(), input))
}

func TestUnitTestRewriterKeepsTagCutOffAtEndOfDocument(t *testing.T) {
	for _, input := range []string{
		`<html><body><p class="x`,
		"<html><body></body></html><di",
		"<html><body><!-- unfinished",
	} {
		require.Equal(t, input, transform(t, injectmdw.NewRewriter(), input))
	}

	rw := injectmdw.NewRewriter().On("body", func(e *injectmdw.Element) {
		e.Prepend("<i></i>", true)
		e.Append("<script></script>", true)
	})

	require.Equal(t,
		`<html><body><i></i><p>text<script></script><p class="x`,
		transform(t, rw, `<html><body><p>text<p class="x`),
	)
}

func TestUnitTestRewriterInsertionPoints(t *testing.T) {
	testCases := []struct {
		name     string
		rewriter func() *injectmdw.Rewriter
		input    string
		expected string
	}{
		{
			name: "prepend after start tag",
			rewriter: func() *injectmdw.Rewriter {
				return injectmdw.NewRewriter().On("body", func(e *injectmdw.Element) {
					e.Prepend("<i></i>", true)
				})
			},
			input:    "<html><body><p>x</p></body></html>",
			expected: "<html><body><i></i><p>x</p></body></html>",
		},
		{
			name: "append before end tag",
			rewriter: func() *injectmdw.Rewriter {
				return injectmdw.NewRewriter().On("head", func(e *injectmdw.Element) {
					e.Append("<style></style>", true)
				})
			},
			input:    "<html><head><title>t</title></head><body></body></html>",
			expected: "<html><head><title>t</title><style></style></head><body></body></html>",
		},
		{
			name: "later prepends come first",
			rewriter: func() *injectmdw.Rewriter {
				return injectmdw.NewRewriter().On("body", func(e *injectmdw.Element) {
					e.Prepend("a", true)
					e.Prepend("b", true)
				})
			},
			input:    "<body></body>",
			expected: "<body>ba</body>",
		},
		{
			name: "escapes content not marked raw",
			rewriter: func() *injectmdw.Rewriter {
				return injectmdw.NewRewriter().On("body", func(e *injectmdw.Element) {
					e.Prepend("<b>&</b>", false)
				})
			},
			input:    "<body></body>",
			expected: "<body>&lt;b&gt;&amp;&lt;/b&gt;</body>",
		},
		{
			name: "only the first matching element",
			rewriter: func() *injectmdw.Rewriter {
				return injectmdw.NewRewriter().On("p", func(e *injectmdw.Element) {
					e.Append("!", true)
				})
			},
			input:    "<p>one</p><p>two</p>",
			expected: "<p>one!</p><p>two</p>",
		},
		{
			name: "append waits for the matching end tag of nested elements",
			rewriter: func() *injectmdw.Rewriter {
				return injectmdw.NewRewriter().On("div", func(e *injectmdw.Element) {
					e.Append("<hr>", true)
				})
			},
			input:    "<div><div>inner</div>outer</div>",
			expected: "<div><div>inner</div>outer<hr></div>",
		},
		{
			name: "matches tag names case insensitively and keeps original case",
			rewriter: func() *injectmdw.Rewriter {
				return injectmdw.NewRewriter().On("BODY", func(e *injectmdw.Element) {
					e.Prepend("x", true)
					e.Append("y", true)
				})
			},
			input:    "<BODY>z</Body>",
			expected: "<BODY>xzy</Body>",
		},
		{
			name: "head without end tag is closed by body",
			rewriter: func() *injectmdw.Rewriter {
				return injectmdw.NewRewriter().On("head", func(e *injectmdw.Element) {
					e.Append("<style></style>", true)
				})
			},
			input:    "<html><head><title>t</title><body>b</body></html>",
			expected: "<html><head><title>t</title><style></style><body>b</body></html>",
		},
		{
			name: "body without end tag is appended at end of document",
			rewriter: func() *injectmdw.Rewriter {
				return injectmdw.NewRewriter().On("body", func(e *injectmdw.Element) {
					e.Append("<script></script>", true)
				})
			},
			input:    "<html><body><p>text",
			expected: "<html><body><p>text<script></script>",
		},
		{
			name: "missing element leaves document unchanged",
			rewriter: func() *injectmdw.Rewriter {
				return injectmdw.NewRewriter().On("head", func(e *injectmdw.Element) {
					e.Append("<style></style>", true)
				})
			},
			input:    "<p>fragment</p>",
			expected: "<p>fragment</p>",
		},
		{
			name: "tags inside script text are not elements",
			rewriter: func() *injectmdw.Rewriter {
				return injectmdw.NewRewriter().On("body", func(e *injectmdw.Element) {
					e.Prepend("!", true)
				})
			},
			input:    "<head><script>document.write('<body>')</script></head><body></body>",
			expected: "<head><script>document.write('<body>')</script></head><body>!</body>",
		},
		{
			name: "void elements get appends right after the tag",
			rewriter: func() *injectmdw.Rewriter {
				return injectmdw.NewRewriter().On("img", func(e *injectmdw.Element) {
					e.Append("<span></span>", true)
				})
			},
			input:    "<p><img src=a.png>caption</p>",
			expected: "<p><img src=a.png><span></span>caption</p>",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, transform(t, tc.rewriter(), tc.input))
		})
	}
}

func TestUnitTestRewriterHandlersShareElement(t *testing.T) {
	var seen []string

	rw := injectmdw.NewRewriter().
		On("body", func(e *injectmdw.Element) {
			seen = append(seen, "first:"+e.TagName())
			e.Prepend("<div id=c></div>", true)
		}).
		On("body", func(e *injectmdw.Element) {
			seen = append(seen, "second:"+e.TagName())
			e.Append("<script></script>", true)
		})

	out := transform(t, rw, "<body><p></p></body>")

	require.Equal(t, "<body><div id=c></div><p></p><script></script></body>", out)
	require.Equal(t, []string{"first:body", "second:body"}, seen)
}
