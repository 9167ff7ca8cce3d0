package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/storerating/rating-api/internal/api/metrics"
	"github.com/storerating/rating-api/internal/core/domain"
	"github.com/storerating/rating-api/internal/core/ports"
)

// RatingHandler serves rating submission and lookup.
type RatingHandler struct {
	service ports.RatingService
}

func NewRatingHandler(service ports.RatingService) *RatingHandler {
	return &RatingHandler{service: service}
}

// --- Request / Response types ---

// Rating and comment limits are checked by the service so the client gets the
// domain message.
type submitRatingRequest struct {
	StoreID int64   `json:"store_id" validate:"required,gt=0"`
	Rating  int     `json:"rating"`
	Comment *string `json:"comment"`
}

type storeAggregate struct {
	ID            int64   `json:"id"`
	AverageRating float64 `json:"average_rating"`
	TotalRatings  int64   `json:"total_ratings"`
}

type submitRatingResponse struct {
	Rating  *domain.Rating `json:"rating"`
	Store   storeAggregate `json:"store"`
	Created bool           `json:"created"`
}

// Submit handles POST /api/ratings.
//
// @Summary      Submit or replace a rating
// @Description  One rating per user and store; a second submission replaces the first. Returns 201 when a new rating was created, 200 when an existing one was replaced.
// @Tags         ratings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      submitRatingRequest  true  "Rating"
// @Success      200   {object}  submitRatingResponse
// @Success      201   {object}  submitRatingResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /ratings [post]
func (h *RatingHandler) Submit(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req submitRatingRequest
	if err := bind(c, &req); err != nil {
		metrics.RatingsSubmittedTotal.WithLabelValues("rejected").Inc()
		return err
	}

	res, err := h.service.Submit(c.Request().Context(), p, ports.SubmitRatingInput{
		StoreID: req.StoreID,
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		metrics.RatingsSubmittedTotal.WithLabelValues("rejected").Inc()
		return err
	}

	status, result := http.StatusOK, "updated"
	if res.Created {
		status, result = http.StatusCreated, "created"
	}
	metrics.RatingsSubmittedTotal.WithLabelValues(result).Inc()
	metrics.RatingValue.Observe(float64(res.Rating.Rating))

	return c.JSON(status, submitRatingResponse{
		Rating: res.Rating,
		Store: storeAggregate{
			ID:            res.Rating.StoreID,
			AverageRating: res.Aggregate.Average,
			TotalRatings:  res.Aggregate.Total,
		},
		Created: res.Created,
	})
}

// Delete handles DELETE /api/ratings/:id.
//
// @Summary      Delete a rating
// @Tags         ratings
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Rating ID"
// @Success      200  {object}  messageResponse
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /ratings/{id} [delete]
func (h *RatingHandler) Delete(c echo.Context) error {
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
	metrics.ResourcesChangedTotal.WithLabelValues("rating", "delete").Inc()

	return c.JSON(http.StatusOK, messageResponse{Message: "rating deleted successfully"})
}

// StoreRatings handles GET /api/ratings/store/:storeId.
//
// @Summary      Ratings of a store
// @Tags         ratings
// @Produce      json
// @Param        storeId  path      int  true  "Store ID"
// @Success      200      {array}   domain.Rating
// @Failure      404      {object}  map[string]string
// @Router       /ratings/store/{storeId} [get]
func (h *RatingHandler) StoreRatings(c echo.Context) error {
	storeID, err := pathID(c, "storeId")
	if err != nil {
		return err
	}

	ratings, err := h.service.StoreRatings(c.Request().Context(), storeID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ratings)
}

// UserRating handles GET /api/ratings/store/:storeId/user.
//
// @Summary      The caller's rating for a store
// @Tags         ratings
// @Produce      json
// @Security     BearerAuth
// @Param        storeId  path      int  true  "Store ID"
// @Success      200      {object}  domain.Rating
// @Failure      401      {object}  map[string]string
// @Failure      404      {object}  map[string]string
// @Router       /ratings/store/{storeId}/user [get]
func (h *RatingHandler) UserRating(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	storeID, err := pathID(c, "storeId")
	if err != nil {
		return err
	}

	rating, err := h.service.UserRatingForStore(c.Request().Context(), p, storeID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rating)
}
