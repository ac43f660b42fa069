// Package reportingmdw provides a stand in for the error reporting
// middleware of the hosted platform. It has the same constructor
// signature so the middleware chain can be assembled without the
// real integration, and it only ever hands the request on.
package reportingmdw

import (
	"net/http"

	"github.com/urfave/negroni"
)

// Options mirrors the settings accepted by the error reporting
// integration. They are accepted and ignored.
type Options struct {
	DSN              string
	Environment      string
	TracesSampleRate float64
}

// New returns a middleware that immediately calls the next handler
func New(options Options) negroni.Handler {
	return negroni.HandlerFunc(func(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		next(w, r)
	})
}
