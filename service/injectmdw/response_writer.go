package injectmdw

import (
	"io"
	"net/http"
	"sync"

	"github.com/urfave/negroni"
)

// injectingResponseWriter decides when the response headers are
// written whether the body gets rewritten. Rewritten bodies are
// piped through the Rewriter running on its own goroutine.
type injectingResponseWriter struct {
	negroni.ResponseWriter

	injector *Injector
	request  *http.Request

	decided   bool
	rewriting bool

	// mu serialises writes by the rewriter goroutine with Flush
	mu         sync.Mutex
	pipeWriter *io.PipeWriter
	done       chan error
}

var _ http.Flusher = &injectingResponseWriter{}

func newInjectingResponseWriter(w http.ResponseWriter, r *http.Request, injector *Injector) *injectingResponseWriter {
	return &injectingResponseWriter{
		ResponseWriter: negroni.NewResponseWriter(w),
		injector:       injector,
		request:        r,
	}
}

// WriteHeader implements the WriteHeader method of http.ResponseWriter
// it decides whether to rewrite the body before the headers are sent
func (w *injectingResponseWriter) WriteHeader(status int) {
	if !w.decided {
		w.decided = true
		if w.injector.shouldRewrite(w.request, status, w.Header()) {
			w.startRewriting()
		}
	}

	w.ResponseWriter.WriteHeader(status)
}

// Write implements the Write method of http.ResponseWriter
// it routes the body through the rewriter when rewriting
func (w *injectingResponseWriter) Write(b []byte) (int, error) {
	if !w.decided {
		// the status will be StatusOK if WriteHeader has not been called yet
		w.WriteHeader(http.StatusOK)
	}

	if w.rewriting {
		return w.pipeWriter.Write(b)
	}

	return w.ResponseWriter.Write(b)
}

// Flush implements http.Flusher
func (w *injectingResponseWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.ResponseWriter.Flush()
}

// Unwrap lets http.ResponseController reach the underlying writer,
// for example to hijack the connection of a protocol upgrade
func (w *injectingResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Rewritten reports whether the response body is being rewritten
func (w *injectingResponseWriter) Rewritten() bool {
	return w.rewriting
}

func (w *injectingResponseWriter) startRewriting() {
	// the body length changes
	w.Header().Del("Content-Length")

	pipeReader, pipeWriter := io.Pipe()

	w.rewriting = true
	w.pipeWriter = pipeWriter
	w.done = make(chan error, 1)

	dst := &lockedWriter{mu: &w.mu, w: w.ResponseWriter}

	go func() {
		err := w.injector.newRewriter().Transform(dst, pipeReader)
		if err != nil {
			// copy what is left unmodified so the handler is never blocked writing the body
			_, copyErr := io.Copy(dst, pipeReader)
			pipeReader.CloseWithError(copyErr)
			w.done <- err
			return
		}
		pipeReader.Close()
		w.done <- nil
	}()
}

// finish flushes the remainder of a rewritten body, it must be
// called once the wrapped handler has returned
func (w *injectingResponseWriter) finish() error {
	if !w.rewriting {
		return nil
	}

	w.pipeWriter.Close()

	return <-w.done
}

// lockedWriter guards every write with a shared mutex
type lockedWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (lw *lockedWriter) Write(b []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	return lw.w.Write(b)
}
