package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"time"

	"skillmatch/internal/errors"
)

// getHealthCheckTimeout returns the configured model check timeout
func (s *Server) getHealthCheckTimeout() time.Duration {
	if s.AppConfig != nil {
		if t := s.AppConfig.Observability.HealthCheck.AIModelCheckTimeout; t > 0 {
			return t
		}
		if t := s.AppConfig.Observability.HealthCheck.Timeout; t > 0 {
			return t
		}
	}
	return 10 * time.Second
}

// healthHandler reports model availability, circuit breakers and the cache
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.getHealthCheckTimeout())
	defer cancel()

	response := map[string]any{
		"status":  "healthy",
		"service": "skillmatch",
		"version": s.Version,
	}
	overallHealthy := true

	aiStatus := make(map[string]any, len(s.Models))
	circuitBreakerStatus := make(map[string]any, len(s.Models))
	for _, m := range s.Models {
		info := m.GetModelInfo(ctx)
		aiStatus[m.Operation()] = info
		circuitBreakerStatus[m.Operation()] = m.GetCircuitBreakerStats()
		if info == nil || !info.Available {
			overallHealthy = false
		}
	}
	response["ai_models"] = aiStatus
	response["circuit_breakers"] = circuitBreakerStatus

	if s.Cache != nil {
		cacheStatus := map[string]any{"enabled": true, "available": true}
		if err := s.Cache.Ping(ctx); err != nil {
			cacheStatus["available"] = false
			cacheStatus["error"] = err.Error()
			overallHealthy = false
		}
		response["cache"] = cacheStatus
	} else {
		response["cache"] = map[string]any{"enabled": false}
	}

	response["roles"] = map[string]any{
		"count": len(s.Roles.Names()),
		"file":  s.Roles.File(),
	}

	status := http.StatusOK
	if !overallHealthy {
		response["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

// statsHandler provides server statistics including rate limiting info
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service": "skillmatch",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
		},
		"sessions": map[string]any{
			"active": s.Sessions.Len(),
			"ttl":    s.Sessions.ttl.String(),
			"max":    s.Sessions.max,
		},
		"roles": s.Roles.Names(),
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{
			"enabled": false,
		}
	}

	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_api_key":       s.RateLimit.ByAPIKey,
		}
	}

	writeJSON(w, http.StatusOK, response)
}

// parseJSONRequest parses JSON request body into the provided struct
func parseJSONRequest(r *http.Request, v any) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "content-type must be application/json", nil)
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return errors.NewValidationError(errors.ErrCodeInvalidRequest,
				fmt.Sprintf("request body too large (limit is %d bytes)", maxBytesErr.Limit), err)
		}
		return errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to read request body", err)
	}
	defer func() {
		if err := r.Body.Close(); err != nil {
			log.Printf("Failed to close request body: %v", err)
		}
	}()

	if err := json.Unmarshal(body, v); err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "failed to parse JSON", err)
	}

	return nil
}

// statusForError maps an application error onto an HTTP status
func statusForError(err error) int {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return http.StatusRequestEntityTooLarge
	}

	var appErr *errors.AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError
	}

	if appErr.Code == errors.ErrCodeSessionLimit {
		return http.StatusServiceUnavailable
	}

	switch appErr.Type {
	case errors.ErrorTypeValidation:
		if appErr.Code == errors.ErrCodeSessionNotFound {
			return http.StatusNotFound
		}
		return http.StatusBadRequest
	case errors.ErrorTypeExtraction:
		if appErr.Code == errors.ErrCodeUnsupportedFormat {
			return http.StatusUnsupportedMediaType
		}
		return http.StatusUnprocessableEntity
	case errors.ErrorTypeParse:
		return http.StatusUnprocessableEntity
	case errors.ErrorTypeGeneration, errors.ErrorTypeNetwork:
		if appErr.Code == errors.ErrCodeGenerationTimeout || appErr.Code == errors.ErrCodeNetworkTimeout {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errorTypeOf returns the error category used in span attributes
func errorTypeOf(err error) string {
	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		return string(appErr.Type)
	}
	return string(errors.ErrorTypeInternal)
}

// writeAppError writes err with the status of its category
func writeAppError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		writeJSON(w, status, ErrorResponse{
			Error:   http.StatusText(status),
			Message: appErr.Message,
			Code:    appErr.Code,
		})
		return
	}
	writeErrorResponse(w, http.StatusText(status), err.Error(), status)
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, error, message string, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{
		Error:   error,
		Message: message,
	})
}

// writeJSON encodes v with statusCode
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}
