package handler

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/storerating/rating-api/internal/api/middleware"
	"github.com/storerating/rating-api/internal/core/domain"
	"github.com/storerating/rating-api/internal/core/policy"
	"github.com/storerating/rating-api/internal/core/ports"
)

type stubAuthService struct {
	registerFn       func(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error)
	loginFn          func(ctx context.Context, email, password string) (*ports.AuthResult, error)
	profileFn        func(ctx context.Context, p policy.Principal) (*domain.User, error)
	updatePasswordFn func(ctx context.Context, p policy.Principal, current, next string) error
}

func (s *stubAuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubAuthService) Profile(ctx context.Context, p policy.Principal) (*domain.User, error) {
	return s.profileFn(ctx, p)
}

func (s *stubAuthService) UpdatePassword(ctx context.Context, p policy.Principal, current, next string) error {
	return s.updatePasswordFn(ctx, p, current, next)
}

type stubUserService struct {
	listFn   func(ctx context.Context, p policy.Principal, f ports.ListUsersFilter) ([]*domain.User, error)
	getFn    func(ctx context.Context, p policy.Principal, id int64) (*domain.User, error)
	createFn func(ctx context.Context, p policy.Principal, in ports.CreateUserInput) (*domain.User, error)
	updateFn func(ctx context.Context, p policy.Principal, id int64, in ports.UpdateUserInput) (*domain.User, error)
	deleteFn func(ctx context.Context, p policy.Principal, id int64) error
	statsFn  func(ctx context.Context, p policy.Principal) (*domain.DashboardStats, error)
}

func (s *stubUserService) List(ctx context.Context, p policy.Principal, f ports.ListUsersFilter) ([]*domain.User, error) {
	return s.listFn(ctx, p, f)
}

func (s *stubUserService) Get(ctx context.Context, p policy.Principal, id int64) (*domain.User, error) {
	return s.getFn(ctx, p, id)
}

func (s *stubUserService) Create(ctx context.Context, p policy.Principal, in ports.CreateUserInput) (*domain.User, error) {
	return s.createFn(ctx, p, in)
}

func (s *stubUserService) Update(ctx context.Context, p policy.Principal, id int64, in ports.UpdateUserInput) (*domain.User, error) {
	return s.updateFn(ctx, p, id, in)
}

func (s *stubUserService) Delete(ctx context.Context, p policy.Principal, id int64) error {
	return s.deleteFn(ctx, p, id)
}

func (s *stubUserService) DashboardStats(ctx context.Context, p policy.Principal) (*domain.DashboardStats, error) {
	return s.statsFn(ctx, p)
}

func (s *stubUserService) EnsureAdmin(context.Context, ports.AdminSeed) (bool, error) {
	return false, nil
}

type stubStoreService struct {
	listFn        func(ctx context.Context, f ports.ListStoresFilter) ([]*ports.StoreListItem, error)
	getFn         func(ctx context.Context, id int64) (*ports.StoreDetail, error)
	createFn      func(ctx context.Context, p policy.Principal, in ports.CreateStoreInput) (*domain.Store, error)
	updateFn      func(ctx context.Context, p policy.Principal, id int64, in ports.UpdateStoreInput) (*domain.Store, error)
	deleteFn      func(ctx context.Context, p policy.Principal, id int64) error
	ownerStoresFn func(ctx context.Context, p policy.Principal) ([]*ports.StoreDetail, error)
}

func (s *stubStoreService) List(ctx context.Context, f ports.ListStoresFilter) ([]*ports.StoreListItem, error) {
	return s.listFn(ctx, f)
}

func (s *stubStoreService) Get(ctx context.Context, id int64) (*ports.StoreDetail, error) {
	return s.getFn(ctx, id)
}

func (s *stubStoreService) Create(ctx context.Context, p policy.Principal, in ports.CreateStoreInput) (*domain.Store, error) {
	return s.createFn(ctx, p, in)
}

func (s *stubStoreService) Update(ctx context.Context, p policy.Principal, id int64, in ports.UpdateStoreInput) (*domain.Store, error) {
	return s.updateFn(ctx, p, id, in)
}

func (s *stubStoreService) Delete(ctx context.Context, p policy.Principal, id int64) error {
	return s.deleteFn(ctx, p, id)
}

func (s *stubStoreService) OwnerStores(ctx context.Context, p policy.Principal) ([]*ports.StoreDetail, error) {
	return s.ownerStoresFn(ctx, p)
}

type stubRatingService struct {
	submitFn       func(ctx context.Context, p policy.Principal, in ports.SubmitRatingInput) (*ports.SubmitRatingResult, error)
	deleteFn       func(ctx context.Context, p policy.Principal, id int64) error
	storeRatingsFn func(ctx context.Context, storeID int64) ([]*domain.Rating, error)
	userRatingFn   func(ctx context.Context, p policy.Principal, storeID int64) (*domain.Rating, error)
}

func (s *stubRatingService) Submit(ctx context.Context, p policy.Principal, in ports.SubmitRatingInput) (*ports.SubmitRatingResult, error) {
	return s.submitFn(ctx, p, in)
}

func (s *stubRatingService) Delete(ctx context.Context, p policy.Principal, id int64) error {
	return s.deleteFn(ctx, p, id)
}

func (s *stubRatingService) StoreRatings(ctx context.Context, storeID int64) ([]*domain.Rating, error) {
	return s.storeRatingsFn(ctx, storeID)
}

func (s *stubRatingService) UserRatingForStore(ctx context.Context, p policy.Principal, storeID int64) (*domain.Rating, error) {
	return s.userRatingFn(ctx, p, storeID)
}

// newContext builds an echo context with the request validator registered.
// An empty body sends no payload.
func newContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

// authenticate sets the values the Auth middleware would have injected.
func authenticate(c echo.Context, userID int64, role domain.Role) {
	c.Set(middleware.UserIDKey, userID)
	c.Set(middleware.RoleKey, role)
}

func withParam(c echo.Context, name, value string) {
	c.SetParamNames(name)
	c.SetParamValues(value)
}
