package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/storerating/rating-api/internal/api/metrics"
	"github.com/storerating/rating-api/internal/core/domain"
	"github.com/storerating/rating-api/internal/core/ports"
)

// StoreHandler serves the store catalogue and store management routes.
type StoreHandler struct {
	service ports.StoreService
}

func NewStoreHandler(service ports.StoreService) *StoreHandler {
	return &StoreHandler{service: service}
}

// --- Request types ---

type createStoreRequest struct {
	Name    string `json:"name" validate:"required,min=1,max=100"`
	Email   string `json:"email" validate:"required,email"`
	Address string `json:"address" validate:"max=400"`
	OwnerID *int64 `json:"owner_id" validate:"omitempty,gt=0"`
}

type updateStoreRequest struct {
	Name    *string `json:"name" validate:"omitempty,min=1,max=100"`
	Email   *string `json:"email" validate:"omitempty,email"`
	Address *string `json:"address" validate:"omitempty,max=400"`
}

// List handles GET /api/stores.
//
// @Summary      List stores
// @Description  Public catalogue ordered by average rating, best first.
// @Tags         stores
// @Produce      json
// @Param        name       query     string  false  "Partial name match"
// @Param        address    query     string  false  "Partial address match"
// @Param        minRating  query     number  false  "Minimum average rating (0-5)"
// @Success      200        {array}   ports.StoreListItem
// @Failure      400        {object}  map[string]string
// @Router       /stores [get]
func (h *StoreHandler) List(c echo.Context) error {
	filter := ports.ListStoresFilter{
		Name:    c.QueryParam("name"),
		Address: c.QueryParam("address"),
	}
	if raw := c.QueryParam("minRating"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return domain.Invalid("minRating must be a number")
		}
		filter.MinRating = &v
	}

	stores, err := h.service.List(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stores)
}

// Get handles GET /api/stores/:id.
//
// @Summary      Get a store with its ratings
// @Tags         stores
// @Produce      json
// @Param        id   path      int  true  "Store ID"
// @Success      200  {object}  ports.StoreDetail
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /stores/{id} [get]
func (h *StoreHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	store, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, store)
}

// Create handles POST /api/stores.
//
// @Summary      Create a store
// @Description  Non-admin callers create a store for themselves and become its owner. Admins may set owner_id.
// @Tags         stores
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createStoreRequest  true  "Store details"
// @Success      201   {object}  domain.Store
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /stores [post]
func (h *StoreHandler) Create(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req createStoreRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	store, err := h.service.Create(c.Request().Context(), p, ports.CreateStoreInput{
		Name:    req.Name,
		Email:   req.Email,
		Address: req.Address,
		OwnerID: req.OwnerID,
	})
	if err != nil {
		return err
	}
	metrics.ResourcesChangedTotal.WithLabelValues("store", "create").Inc()

	return c.JSON(http.StatusCreated, store)
}

// Update handles PUT /api/stores/:id.
//
// @Summary      Update a store
// @Description  Allowed for admins and for the store's owner.
// @Tags         stores
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                 true  "Store ID"
// @Param        body  body      updateStoreRequest  true  "Fields to change"
// @Success      200   {object}  domain.Store
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /stores/{id} [put]
func (h *StoreHandler) Update(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req updateStoreRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	store, err := h.service.Update(c.Request().Context(), p, id, ports.UpdateStoreInput{
		Name:    req.Name,
		Email:   req.Email,
		Address: req.Address,
	})
	if err != nil {
		return err
	}
	metrics.ResourcesChangedTotal.WithLabelValues("store", "update").Inc()

	return c.JSON(http.StatusOK, store)
}

// Delete handles DELETE /api/stores/:id.
//
// @Summary      Delete a store
// @Description  Removes the store and its ratings; its owner reverts to a plain user.
// @Tags         stores
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Store ID"
// @Success      200  {object}  messageResponse
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /stores/{id} [delete]
func (h *StoreHandler) Delete(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.Request().Context(), p, id); err != nil {
		return err
	}
	metrics.ResourcesChangedTotal.WithLabelValues("store", "delete").Inc()

	return c.JSON(http.StatusOK, messageResponse{Message: "store deleted successfully"})
}

// OwnerStores handles GET /api/stores/owner.
//
// @Summary      Stores owned by the caller
// @Tags         stores
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   ports.StoreDetail
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /stores/owner [get]
func (h *StoreHandler) OwnerStores(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	stores, err := h.service.OwnerStores(c.Request().Context(), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stores)
}
