package service

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/negroni"

	"github.com/backdrop-labs/backdrop-proxy-service/clients/database"
	"github.com/backdrop-labs/backdrop-proxy-service/service/injectmdw"
)

const (
	RequestIDHeader = "X-Request-Id"
)

// createRequestMetricsMiddleware returns a middleware that tags every
// proxied request with a request id, logs it once the response has been
// written and records an InjectionMetric for it out of band of the
// request-response cycle
func createRequestMetricsMiddleware(service *ProxyService) negroni.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
			r.Header.Set(RequestIDHeader, requestID)
		}

		w.Header().Set(RequestIDHeader, requestID)

		ctx, injection := injectmdw.WithInjectionStatus(r.Context())

		requestTime := time.Now()

		next(w, r.WithContext(ctx))

		latency := time.Since(requestTime)

		status := http.StatusOK
		if rw, ok := w.(negroni.ResponseWriter); ok && rw.Status() != 0 {
			status = rw.Status()
		}

		metric := database.InjectionMetric{
			RequestID:                   requestID,
			Method:                      r.Method,
			Hostname:                    r.Host,
			Path:                        r.URL.Path,
			StatusCode:                  status,
			ContentType:                 w.Header().Get("Content-Type"),
			Injected:                    injection.Injected,
			ResponseLatencyMilliseconds: latency.Milliseconds(),
			RequestTime:                 requestTime,
		}

		service.Debug().
			Str("request_id", requestID).
			Str("method", metric.Method).
			Str("host", metric.Hostname).
			Str("path", metric.Path).
			Int("status", metric.StatusCode).
			Bool("injected", metric.Injected).
			Int64("latency_ms", metric.ResponseLatencyMilliseconds).
			Msg("proxied request")

		// saved out of band of the request-response cycle
		service.metricSaves.Add(1)
		go func() {
			defer service.metricSaves.Done()

			if err := service.Database.SaveInjectionMetric(context.Background(), &metric); err != nil {
				service.Error().
					Err(err).
					Str("request_id", requestID).
					Msg("error saving injection metric")
			}
		}()
	}
}
