package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/storerating/rating-api/internal/api/metrics"
	"github.com/storerating/rating-api/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps domain error kinds to their HTTP status codes.
//   - Logs unexpected errors and answers with a generic message.
//   - Adds the underlying cause as "detail" when exposeDetails is set.
func NewHTTPErrorHandler(log zerolog.Logger, exposeDetails bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg, unexpected := resolveError(err)
		resp := errorResponse{Error: msg}
		if unexpected {
			log.Error().
				Err(err).
				Str("method", c.Request().Method).
				Str("path", c.Path()).
				Msg("unhandled error")
			if exposeDetails {
				resp.Detail = err.Error()
			}
		}
		metrics.HTTPErrorsTotal.WithLabelValues(strconv.Itoa(code)).Inc()

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, resp)
	}
}

// resolveError maps err to a status code and client message. unexpected is
// true when err is not a client-facing kind.
func resolveError(err error) (code int, msg string, unexpected bool) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message), he.Code >= http.StatusInternalServerError
	}

	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, err.Error(), false
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, err.Error(), false
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, err.Error(), false
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, err.Error(), false
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, err.Error(), false
	}

	return http.StatusInternalServerError, "internal server error", true
}
