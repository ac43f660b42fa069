package service

import (
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/backdrop-labs/backdrop-proxy-service/logging"
)

// newOriginProxy creates the reverse proxy forwarding every
// request that is not an operational endpoint to the origin
func newOriginProxy(origin url.URL, serviceLogger *logging.ServiceLogger) *httputil.ReverseProxy {
	proxy := httputil.NewSingleHostReverseProxy(&origin)

	director := proxy.Director
	proxy.Director = func(r *http.Request) {
		originalHost := r.Host

		director(r)

		// the origin must answer with a plain body for the html
		// rewriter, encoded responses are passed through untouched
		r.Header.Del("Accept-Encoding")

		if r.Header.Get("X-Forwarded-Host") == "" {
			r.Header.Set("X-Forwarded-Host", originalHost)
		}

		serviceLogger.Trace().
			Str("method", r.Method).
			Str("url", r.URL.String()).
			Msg("proxying request to origin")
	}

	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		serviceLogger.Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("error proxying request to origin")

		w.WriteHeader(http.StatusBadGateway)
	}

	return proxy
}
