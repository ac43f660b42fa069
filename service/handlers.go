package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// createHealthcheckHandler creates a health check handler function that
// will respond 200 ok if the proxy service is able to connect to
// it's dependencies and functioning as expected
func createHealthcheckHandler(service *ProxyService) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		var combinedErrors error

		service.Debug().Msg("/healthcheck called")

		// check that the database is reachable
		err := service.Database.HealthCheck()
		if err != nil {
			service.Logger.Error().
				Err(err).
				Msg("database healthcheck failed")

			combinedErrors = errors.Join(combinedErrors, fmt.Errorf("proxy service unable to connect to database"))
		}

		// check that the cache is reachable
		err = service.Cache.Healthcheck(r.Context())
		if err != nil {
			service.Logger.Error().
				Err(err).
				Msg("cache healthcheck failed")

			combinedErrors = errors.Join(combinedErrors, fmt.Errorf("proxy service unable to connect to cache: %v", err))
		}

		if combinedErrors != nil {
			w.WriteHeader(http.StatusInternalServerError)

			w.Write([]byte(combinedErrors.Error()))

			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte("proxy service is healthy"))
	}
}

// createServicecheckHandler creates a service check handler function that
// will respond 200 ok if the proxy service is running
func createServicecheckHandler(service *ProxyService) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		service.Debug().Msg("/servicecheck called")

		w.WriteHeader(http.StatusOK)

		w.Write([]byte("proxy service is in service"))
	}
}

// createBackgroundStatusHandler creates a handler function reporting
// whether the injected rotator would start on the origin's pages and
// which image it would show, resolved the same way the rotator does
func createBackgroundStatusHandler(service *ProxyService) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		service.Debug().Msg("/status/background called")

		var response BackgroundStatusResponse

		writeResponse := func(status int) {
			if err := MarshalJSONResponse(&response, status, w); err != nil {
				service.Error().Err(err).Msg("error encoding background status response")
			}
		}

		if !service.config.BackgroundInjectionEnabled {
			response.Error = "background injection is disabled"
			writeResponse(http.StatusOK)
			return
		}

		// the rotator gives up silently in these cases
		settings, err := service.background.FetchSettings(r.Context())
		if err != nil {
			service.Debug().Err(err).Msg("rotator would not start")

			response.Error = err.Error()
			writeResponse(http.StatusOK)
			return
		}

		response.Enabled = true
		response.Settings = &settings

		imageURL, err := service.background.ResolveImage(r.Context(), settings)
		if err != nil {
			service.Error().Err(err).Msg("error resolving background image")

			response.Error = err.Error()
			writeResponse(http.StatusBadGateway)
			return
		}

		response.ImageURL = imageURL

		writeResponse(http.StatusOK)
	}
}

// MarshalJSONResponse sets JSON content type headers and the status
// code then marshals an interface into the response body
func MarshalJSONResponse(obj interface{}, status int, w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(obj); err != nil {
		return err
	}
	return nil
}
