package handlers

import (
	"net/http"

	"coursepass/internal/common"
	"coursepass/internal/models"
	"coursepass/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// GroupHandlers handles HTTP requests for groups and memberships
type GroupHandlers struct {
	groupService        services.GroupService
	accessService       services.AccessService
	subscriptionService services.SubscriptionService
	courseService       services.CourseService
}

func NewGroupHandlers(
	groupService services.GroupService,
	accessService services.AccessService,
	subscriptionService services.SubscriptionService,
	courseService services.CourseService,
) *GroupHandlers {
	return &GroupHandlers{
		groupService:        groupService,
		accessService:       accessService,
		subscriptionService: subscriptionService,
		courseService:       courseService,
	}
}

// CreateGroup handles POST /v1/groups
func (h *GroupHandlers) CreateGroup(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
	}

	var req models.GroupSettings
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	group, err := h.groupService.Create(ctx, userID, &req)
	if err != nil {
		return common.SendDomainError(c, err)
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message": "Group created successfully",
		"group":   group,
	})
}

// GetGroup handles GET /v1/groups/:id. Guests get the about surface only.
func (h *GroupHandlers) GetGroup(c echo.Context) error {
	ctx := c.Request().Context()

	groupID, err := common.ValidateUUID(c.Param("id"), "group id")
	if err != nil {
		return common.SendDomainError(c, err)
	}

	var viewerID *uuid.UUID
	if userID, ok := common.GetUserIDFromContext(ctx); ok {
		viewerID = &userID
	}

	view, err := h.accessService.GetView(ctx, groupID, viewerID)
	if err != nil {
		return common.SendDomainError(c, err)
	}

	return c.JSON(http.StatusOK, view)
}

// UpdateGroupSettings handles PUT /v1/groups/:id/settings
func (h *GroupHandlers) UpdateGroupSettings(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
	}
	groupID, err := common.ValidateUUID(c.Param("id"), "group id")
	if err != nil {
		return common.SendDomainError(c, err)
	}

	var req models.GroupSettings
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	group, err := h.groupService.UpdateSettings(ctx, groupID, userID, &req)
	if err != nil {
		return common.SendDomainError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Group settings updated successfully",
		"group":   group,
	})
}

// DeleteGroup handles DELETE /v1/groups/:id
func (h *GroupHandlers) DeleteGroup(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
	}
	groupID, err := common.ValidateUUID(c.Param("id"), "group id")
	if err != nil {
		return common.SendDomainError(c, err)
	}

	if err := h.groupService.Delete(ctx, groupID, userID); err != nil {
		return common.SendDomainError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Group deleted successfully",
	})
}

// JoinGroup handles POST /v1/groups/:id/join
func (h *GroupHandlers) JoinGroup(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
	}
	groupID, err := common.ValidateUUID(c.Param("id"), "group id")
	if err != nil {
		return common.SendDomainError(c, err)
	}

	var proof models.JoinProof
	if err := c.Bind(&proof); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	status, err := h.groupService.Join(ctx, groupID, userID, proof)
	if err != nil {
		return common.SendDomainError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": status,
	})
}

// LeaveGroup handles POST /v1/groups/:id/leave
func (h *GroupHandlers) LeaveGroup(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
	}
	groupID, err := common.ValidateUUID(c.Param("id"), "group id")
	if err != nil {
		return common.SendDomainError(c, err)
	}

	status, err := h.groupService.Leave(ctx, groupID, userID)
	if err != nil {
		return common.SendDomainError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": status,
	})
}

// RenewSubscription handles POST /v1/groups/:id/subscription/renew
func (h *GroupHandlers) RenewSubscription(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
	}
	groupID, err := common.ValidateUUID(c.Param("id"), "group id")
	if err != nil {
		return common.SendDomainError(c, err)
	}

	var req struct {
		TxHash *string `json:"tx_hash"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	status, err := h.subscriptionService.Renew(ctx, groupID, userID, req.TxHash)
	if err != nil {
		return common.SendDomainError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":      "Subscription renewed successfully",
		"subscription": status,
	})
}

// ResetCourse handles POST /v1/groups/:id/subscription/reset-course
func (h *GroupHandlers) ResetCourse(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
	}
	groupID, err := common.ValidateUUID(c.Param("id"), "group id")
	if err != nil {
		return common.SendDomainError(c, err)
	}

	courseID, err := h.courseService.ResetCourseID(ctx, groupID, userID)
	if err != nil {
		return common.SendDomainError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":   "Course identifier reset",
		"course_id": courseID,
	})
}
