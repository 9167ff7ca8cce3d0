package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/storerating/rating-api/internal/api/middleware"
	"github.com/storerating/rating-api/internal/core/domain"
	"github.com/storerating/rating-api/internal/core/policy"
)

// ctxPrincipal extracts the caller injected by the Auth middleware. A missing
// id or role means the route was mounted without Auth; reject with 401.
func ctxPrincipal(c echo.Context) (policy.Principal, error) {
	userID, _ := c.Get(middleware.UserIDKey).(int64)
	role, _ := c.Get(middleware.RoleKey).(domain.Role)
	if userID <= 0 || !role.Valid() {
		return policy.Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return policy.Principal{UserID: userID, Role: role}, nil
}

// pathID parses a positive integer path parameter.
func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Invalid("invalid " + name)
	}
	return id, nil
}

// bind decodes the request body into req and runs the registered validator.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		return domain.Invalid(err.Error())
	}
	return nil
}
