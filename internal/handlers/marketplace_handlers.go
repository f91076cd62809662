package handlers

import (
	"net/http"
	"time"

	"coursepass/internal/common"
	"coursepass/internal/services"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// MarketplaceHandlers handles HTTP requests for the secondary listing book
// and course reads
type MarketplaceHandlers struct {
	marketplaceService services.MarketplaceService
	courseService      services.CourseService
}

func NewMarketplaceHandlers(marketplaceService services.MarketplaceService, courseService services.CourseService) *MarketplaceHandlers {
	return &MarketplaceHandlers{
		marketplaceService: marketplaceService,
		courseService:      courseService,
	}
}

// GetCourse handles GET /v1/courses/:courseId
func (h *MarketplaceHandlers) GetCourse(c echo.Context) error {
	ctx := c.Request().Context()

	courseID := c.Param("courseId")
	if err := common.ValidateRequiredString(courseID, "course id"); err != nil {
		return common.SendDomainError(c, err)
	}

	config, err := h.courseService.GetCourseConfig(ctx, courseID)
	if err != nil {
		return common.SendDomainError(c, err)
	}

	return c.JSON(http.StatusOK, config)
}

// GetFloorPrice handles GET /v1/courses/:courseId/floor-price
func (h *MarketplaceHandlers) GetFloorPrice(c echo.Context) error {
	ctx := c.Request().Context()

	courseID := c.Param("courseId")
	if err := common.ValidateRequiredString(courseID, "course id"); err != nil {
		return common.SendDomainError(c, err)
	}

	floor, err := h.marketplaceService.GetFloorPrice(ctx, courseID)
	if err != nil {
		return common.SendDomainError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"course_id":   courseID,
		"floor_price": floor,
	})
}

// GetListings handles GET /v1/courses/:courseId/listings
func (h *MarketplaceHandlers) GetListings(c echo.Context) error {
	ctx := c.Request().Context()

	courseID := c.Param("courseId")
	if err := common.ValidateRequiredString(courseID, "course id"); err != nil {
		return common.SendDomainError(c, err)
	}

	listings, err := h.marketplaceService.GetActiveListings(ctx, courseID)
	if err != nil {
		return common.SendDomainError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"course_id": courseID,
		"listings":  listings,
	})
}

// CreateListing handles POST /v1/courses/:courseId/listings
func (h *MarketplaceHandlers) CreateListing(c echo.Context) error {
	ctx := c.Request().Context()

	wallet, ok := common.GetWalletFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
	}
	courseID := c.Param("courseId")
	if err := common.ValidateRequiredString(courseID, "course id"); err != nil {
		return common.SendDomainError(c, err)
	}

	var req struct {
		Price           decimal.Decimal `json:"price"`
		DurationSeconds int64           `json:"duration_seconds"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	receipt, err := h.marketplaceService.CreateListing(ctx, wallet, courseID, req.Price, time.Duration(req.DurationSeconds)*time.Second)
	if err != nil {
		return common.SendDomainError(c, err)
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message": "Listing created successfully",
		"receipt": receipt,
	})
}

// CancelListing handles DELETE /v1/courses/:courseId/listings
func (h *MarketplaceHandlers) CancelListing(c echo.Context) error {
	ctx := c.Request().Context()

	wallet, ok := common.GetWalletFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
	}
	courseID := c.Param("courseId")
	if err := common.ValidateRequiredString(courseID, "course id"); err != nil {
		return common.SendDomainError(c, err)
	}

	receipt, err := h.marketplaceService.CancelListing(ctx, wallet, courseID)
	if err != nil {
		return common.SendDomainError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Listing cancelled successfully",
		"receipt": receipt,
	})
}

// BuyListing handles POST /v1/courses/:courseId/listings/buy
func (h *MarketplaceHandlers) BuyListing(c echo.Context) error {
	ctx := c.Request().Context()

	wallet, ok := common.GetWalletFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
	}
	courseID := c.Param("courseId")
	if err := common.ValidateRequiredString(courseID, "course id"); err != nil {
		return common.SendDomainError(c, err)
	}

	var req struct {
		Seller   string          `json:"seller"`
		MaxPrice decimal.Decimal `json:"max_price"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	seller, err := common.NormalizeWalletAddress(req.Seller)
	if err != nil {
		return common.SendDomainError(c, err)
	}

	receipt, err := h.marketplaceService.BuyListing(ctx, wallet, courseID, seller, req.MaxPrice)
	if err != nil {
		return common.SendDomainError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Listing purchased successfully",
		"receipt": receipt,
	})
}

// RenewPass handles POST /v1/courses/:courseId/renew
func (h *MarketplaceHandlers) RenewPass(c echo.Context) error {
	ctx := c.Request().Context()

	wallet, ok := common.GetWalletFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
	}
	courseID := c.Param("courseId")
	if err := common.ValidateRequiredString(courseID, "course id"); err != nil {
		return common.SendDomainError(c, err)
	}

	var req struct {
		MaxPrice decimal.Decimal `json:"max_price"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	receipt, err := h.marketplaceService.RenewPass(ctx, wallet, courseID, req.MaxPrice)
	if err != nil {
		return common.SendDomainError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Pass renewed successfully",
		"receipt": receipt,
	})
}
