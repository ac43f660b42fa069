package injectmdw_test

import (
	"bytes"
	"compress/gzip"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backdrop-labs/backdrop-proxy-service/logging"
	"github.com/backdrop-labs/backdrop-proxy-service/service/injectmdw"
)

const testDocument = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Gallery</title></head>
<body><div id="app"><h1>Images</h1></div></body>
</html>
`

func newTestInjector(t *testing.T, enabled bool) *injectmdw.Injector {
	t.Helper()

	logger, err := logging.New("ERROR")
	require.NoError(t, err)

	snippets, err := injectmdw.NewSnippets(injectmdw.DefaultSnippetConfig())
	require.NoError(t, err)

	return injectmdw.NewInjector(snippets, enabled, &logger)
}

func serve(handler http.Handler, method string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "http://localhost:7777/gallery", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	return resp
}

func staticHandler(status int, header map[string]string, body []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for k, v := range header {
			w.Header().Set(k, v)
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.WriteHeader(status)
		w.Write(body)
	}
}

func TestUnitTestInjectionMiddlewarePassesThroughNonHTML(t *testing.T) {
	injector := newTestInjector(t, true)

	testCases := []struct {
		name        string
		contentType string
		body        string
	}{
		{name: "json", contentType: "application/json", body: `{"config":[]}`},
		{name: "missing content type", contentType: "", body: "<html><head></head><body></body></html>"},
		{name: "xhtml", contentType: "application/xhtml+xml", body: "<html><head></head><body></body></html>"},
		{name: "image", contentType: "image/png", body: "\x89PNG\r\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			upstream := staticHandler(http.StatusOK, map[string]string{
				"Content-Type":  tc.contentType,
				"Cache-Control": "max-age=60",
			}, []byte(tc.body))

			// the recorder sniffs a content type when none is set, so compare with the bare handler
			expected := serve(upstream, http.MethodGet)
			resp := serve(injector.InjectionMiddleware(upstream), http.MethodGet)

			require.Equal(t, expected.Code, resp.Code)
			require.Equal(t, expected.Header(), resp.Header())
			require.Equal(t, tc.body, resp.Body.String())
		})
	}
}

func TestUnitTestInjectionMiddlewareInjectsIntoHTML(t *testing.T) {
	injector := newTestInjector(t, true)
	snippets, err := injectmdw.NewSnippets(injectmdw.DefaultSnippetConfig())
	require.NoError(t, err)

	upstream := staticHandler(http.StatusNotFound, map[string]string{
		"Content-Type": "text/html; charset=utf-8",
		"X-Origin":     "pages",
	}, []byte(testDocument))

	resp := serve(injector.InjectionMiddleware(upstream), http.MethodGet)

	require.Equal(t, http.StatusNotFound, resp.Code)
	require.Equal(t, "pages", resp.Header().Get("X-Origin"))
	require.Equal(t, "text/html; charset=utf-8", resp.Header().Get("Content-Type"))
	require.Empty(t, resp.Header().Get("Content-Length"))

	body := resp.Body.String()
	require.Equal(t, 1, strings.Count(body, `id="random-background-container"`))
	require.Equal(t, 1, strings.Count(body, snippets.Style))
	require.Equal(t, 1, strings.Count(body, snippets.Script))

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	require.NoError(t, err)

	require.Equal(t, 1, doc.Find("head > style").Length())
	require.Equal(t, 0, doc.Find("body style").Length())

	firstChild := doc.Find("body").Children().First()
	id, _ := firstChild.Attr("id")
	require.Equal(t, "random-background-container", id)
	require.Equal(t, 0, firstChild.Children().Length())

	lastChild := doc.Find("body").Children().Last()
	require.True(t, lastChild.Is("script"))
	require.Equal(t, 0, doc.Find("head script").Length())

	require.Equal(t, "Images", doc.Find("#app h1").Text())
}

func TestUnitTestInjectionMiddlewareSkipsResponsesItCannotRewrite(t *testing.T) {
	injector := newTestInjector(t, true)

	var gzipped bytes.Buffer
	gz := gzip.NewWriter(&gzipped)
	gz.Write([]byte(testDocument))
	gz.Close()

	testCases := []struct {
		name    string
		method  string
		status  int
		header  map[string]string
		body    []byte
		enabled bool
	}{
		{
			name:    "encoded body",
			method:  http.MethodGet,
			status:  http.StatusOK,
			header:  map[string]string{"Content-Type": "text/html", "Content-Encoding": "gzip"},
			body:    gzipped.Bytes(),
			enabled: true,
		},
		{
			name:    "head request",
			method:  http.MethodHead,
			status:  http.StatusOK,
			header:  map[string]string{"Content-Type": "text/html"},
			enabled: true,
		},
		{
			name:    "not modified",
			method:  http.MethodGet,
			status:  http.StatusNotModified,
			header:  map[string]string{"Content-Type": "text/html"},
			enabled: true,
		},
		{
			name:    "partial content",
			method:  http.MethodGet,
			status:  http.StatusPartialContent,
			header:  map[string]string{"Content-Type": "text/html"},
			body:    []byte(testDocument[:20]),
			enabled: true,
		},
		{
			name:    "injection disabled",
			method:  http.MethodGet,
			status:  http.StatusOK,
			header:  map[string]string{"Content-Type": "text/html"},
			body:    []byte(testDocument),
			enabled: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			injector := injector
			if !tc.enabled {
				injector = newTestInjector(t, false)
			}

			resp := serve(injector.InjectionMiddleware(staticHandler(tc.status, tc.header, tc.body)), tc.method)

			require.Equal(t, tc.status, resp.Code)
			require.Equal(t, strconv.Itoa(len(tc.body)), resp.Header().Get("Content-Length"))
			require.Equal(t, string(tc.body), resp.Body.String())
		})
	}
}

func TestUnitTestInjectionMiddlewareStreamsChunkedBodies(t *testing.T) {
	injector := newTestInjector(t, true)

	// split the document in the middle of tags to exercise the tokenizer across writes
	chunks := []string{"<html><he", "ad><title>x</ti", "tle></head><bo", "dy><p>hi</p></bo", "dy></html>"}

	upstream := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		for _, chunk := range chunks {
			w.Write([]byte(chunk))
			w.(http.Flusher).Flush()
		}
	})

	resp := serve(injector.InjectionMiddleware(upstream), http.MethodGet)

	require.Equal(t, http.StatusOK, resp.Code)
	require.True(t, resp.Flushed)

	body := resp.Body.String()
	require.True(t, strings.HasPrefix(body, `<html><head><title>x</title><style>`))
	require.Contains(t, body, `</style></head><body><div id="random-background-container"></div><p>hi</p><script>`)
	require.True(t, strings.HasSuffix(body, "</script></body></html>"))
}

func TestUnitTestInjectionMiddlewareReportsInjectionStatus(t *testing.T) {
	injector := newTestInjector(t, true)

	testCases := []struct {
		contentType string
		expected    bool
	}{
		{contentType: "text/html", expected: true},
		{contentType: "text/plain", expected: false},
	}

	for _, tc := range testCases {
		t.Run(tc.contentType, func(t *testing.T) {
			upstream := staticHandler(http.StatusOK, map[string]string{"Content-Type": tc.contentType}, []byte(testDocument))

			req := httptest.NewRequest(http.MethodGet, "http://localhost:7777/", nil)
			ctx, status := injectmdw.WithInjectionStatus(req.Context())

			injector.InjectionMiddleware(upstream).ServeHTTP(httptest.NewRecorder(), req.WithContext(ctx))

			assert.Equal(t, tc.expected, status.Injected)
		})
	}
}

func TestUnitTestIsHTML(t *testing.T) {
	assert.True(t, injectmdw.IsHTML("text/html"))
	assert.True(t, injectmdw.IsHTML("text/html; charset=UTF-8"))
	assert.False(t, injectmdw.IsHTML("application/json"))
	assert.False(t, injectmdw.IsHTML(""))
}
