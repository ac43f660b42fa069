package injectmdw

import (
	"context"
	"net/http"
	"strings"

	"github.com/urfave/negroni"

	"github.com/backdrop-labs/backdrop-proxy-service/logging"
)

// Injector is a negroni middleware writing the background
// snippets into every HTML response of the wrapped handler
type Injector struct {
	snippets Snippets
	enabled  bool

	*logging.ServiceLogger
}

var _ negroni.Handler = (*Injector)(nil)

// NewInjector creates an Injector writing the provided snippets.
// A disabled Injector passes every response through untouched.
func NewInjector(snippets Snippets, enabled bool, logger *logging.ServiceLogger) *Injector {
	return &Injector{
		snippets:      snippets,
		enabled:       enabled,
		ServiceLogger: logger,
	}
}

// newRewriter creates the Rewriter for a single response
func (i *Injector) newRewriter() *Rewriter {
	return NewRewriter().
		On("body", func(e *Element) {
			e.Prepend(i.snippets.Container, true)
		}).
		On("head", func(e *Element) {
			e.Append(i.snippets.Style, true)
		}).
		On("body", func(e *Element) {
			e.Append(i.snippets.Script, true)
		})
}

// IsHTML reports whether a content type header value describes an HTML document
func IsHTML(contentType string) bool {
	return strings.Contains(contentType, "text/html")
}

// shouldRewrite decides from the response status and headers whether
// the body is an HTML document that can be rewritten in flight
func (i *Injector) shouldRewrite(r *http.Request, status int, header http.Header) bool {
	if !i.enabled {
		return false
	}

	if !IsHTML(header.Get("Content-Type")) {
		return false
	}

	if r.Method == http.MethodHead {
		return false
	}

	switch {
	case status < http.StatusOK,
		status == http.StatusNoContent,
		status == http.StatusPartialContent,
		status == http.StatusNotModified:
		return false
	}

	if encoding := header.Get("Content-Encoding"); encoding != "" && !strings.EqualFold(encoding, "identity") {
		i.Logger.Debug().
			Str("path", r.URL.Path).
			Str("content_encoding", encoding).
			Msg("skipping injection for encoded html response")
		return false
	}

	return true
}

// ServeHTTP implements negroni.Handler
func (i *Injector) ServeHTTP(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	if !i.enabled {
		next(w, r)
		return
	}

	iw := newInjectingResponseWriter(w, r, i)

	// deferred so the rewriter goroutine is released even if next panics
	defer i.finish(iw, r)

	next(iw, r)
}

// finish waits for the rewritten body to be fully written
func (i *Injector) finish(iw *injectingResponseWriter, r *http.Request) {
	err := iw.finish()

	if status := injectionStatusFromContext(r.Context()); status != nil {
		status.Injected = iw.Rewritten()
	}

	if err != nil {
		i.Logger.Error().
			Err(err).
			Str("path", r.URL.Path).
			Msg("error rewriting html response")
		return
	}

	if iw.Rewritten() {
		i.Logger.Trace().
			Str("path", r.URL.Path).
			Int("status", iw.Status()).
			Msg("injected background into html response")
	}
}

// InjectionMiddleware wraps next so its HTML responses are rewritten
func (i *Injector) InjectionMiddleware(next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		i.ServeHTTP(w, r, next.ServeHTTP)
	}
}

type injectionStatusContextKey struct{}

// InjectionStatus reports to outer middleware whether
// the response body of a request was rewritten
type InjectionStatus struct {
	Injected bool
}

// WithInjectionStatus returns a context carrying an InjectionStatus
// the Injector fills in once the response has been written
func WithInjectionStatus(ctx context.Context) (context.Context, *InjectionStatus) {
	status := &InjectionStatus{}
	return context.WithValue(ctx, injectionStatusContextKey{}, status), status
}

func injectionStatusFromContext(ctx context.Context) *InjectionStatus {
	status, _ := ctx.Value(injectionStatusContextKey{}).(*InjectionStatus)
	return status
}
