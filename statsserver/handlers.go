/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package statsserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/jasondb/jasondb/log"
)

// ContentTypeAppJSON represents MIME media type for JSON.
const ContentTypeAppJSON = "application/json"

// ErrorDomain is used in bodies of error responses.
const ErrorDomain = "JasonDB"

// Error codes.
const (
	ErrCodeNotFound        = "notFound"
	ErrCodeInternal        = "internalError"
	ErrCodeTooManyRequests = "tooManyRequests"
)

// Error represents an error details in the response body.
type Error struct {
	Domain  string `json:"domain"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

type errorResponseData struct {
	Err *Error `json:"error"`
}

type healthResponseData struct {
	Components map[string]bool `json:"components"`
}

type healthHandler struct {
	check  HealthCheck
	logger log.FieldLogger
}

func (h *healthHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	respData := healthResponseData{Components: map[string]bool{}}
	if h.check != nil {
		components, err := h.check(r.Context())
		if err != nil {
			h.logger.Error("error while checking health", log.Error(err))
			respondError(rw, http.StatusInternalServerError, &Error{Domain: ErrorDomain, Code: ErrCodeInternal}, h.logger)
			return
		}
		respData.Components = components
	}

	status := http.StatusOK
	for _, healthy := range respData.Components {
		if !healthy {
			status = http.StatusServiceUnavailable
			break
		}
	}
	respondCodeAndJSON(rw, status, respData, h.logger)
}

type statsHandler struct {
	provider StatsProvider
	logger   log.FieldLogger
}

func (h *statsHandler) serveAll(rw http.ResponseWriter, _ *http.Request) {
	respondCodeAndJSON(rw, http.StatusOK, h.provider.CacheStats(), h.logger)
}

func (h *statsHandler) serveCollection(rw http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "collection")
	stats, ok := h.provider.CacheStats()[name]
	if !ok {
		respondError(rw, http.StatusNotFound, &Error{
			Domain:  ErrorDomain,
			Code:    ErrCodeNotFound,
			Message: fmt.Sprintf("collection %q is not opened", name),
		}, h.logger)
		return
	}
	respondCodeAndJSON(rw, http.StatusOK, stats, h.logger)
}

// requestLogging logs every completed request with its status and duration.
func requestLogging(logger log.FieldLogger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			startTime := time.Now()
			wrw := chimiddleware.NewWrapResponseWriter(rw, r.ProtoMajor)
			next.ServeHTTP(wrw, r)

			duration := time.Since(startTime)
			logger.Info(fmt.Sprintf("response completed in %.3fs", duration.Seconds()),
				log.String("request_id", chimiddleware.GetReqID(r.Context())),
				log.String("method", r.Method),
				log.String("uri", r.RequestURI),
				log.Int("status", wrw.Status()),
				log.Int("bytes_sent", wrw.BytesWritten()),
				log.Int64("duration_ms", duration.Milliseconds()),
			)
		})
	}
}

// rateLimiting rejects requests exceeding the configured rate with 429 status code.
func rateLimiting(cfg RateLimitConfig, logger log.FieldLogger) func(next http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			reservation := limiter.Reserve()
			if delay := reservation.Delay(); delay > 0 {
				reservation.Cancel()
				rw.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
				respondError(rw, http.StatusTooManyRequests, &Error{
					Domain:  ErrorDomain,
					Code:    ErrCodeTooManyRequests,
					Message: "Too many requests",
				}, logger)
				return
			}
			next.ServeHTTP(rw, r)
		})
	}
}

func respondError(rw http.ResponseWriter, status int, err *Error, logger log.FieldLogger) {
	logger.Warn("error in response", log.String("error_code", err.Code), log.String("error_message", err.Message))
	respondCodeAndJSON(rw, status, errorResponseData{Err: err}, logger)
}

func respondCodeAndJSON(rw http.ResponseWriter, status int, respData interface{}, logger log.FieldLogger) {
	respJSON, err := jsonMarshal(respData)
	if err != nil {
		logger.Error("error while marshaling json for response body", log.Error(err))
		rw.WriteHeader(http.StatusInternalServerError)
		return
	}
	rw.Header().Set("Content-Type", ContentTypeAppJSON)
	rw.WriteHeader(status)
	if _, err = rw.Write(respJSON); err != nil {
		logger.Error("error while writing response body", log.Error(err))
	}
}

// jsonMarshal does JSON marshaling with disabled HTML escaping.
func jsonMarshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
