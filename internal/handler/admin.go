package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kitchenware/storefront/internal/dto"
	"github.com/kitchenware/storefront/internal/service"
)

type AdminHandler struct {
	dashboard *service.DashboardService
	roles     *service.RoleService
}

func NewAdminHandler(dashboard *service.DashboardService, roles *service.RoleService) *AdminHandler {
	return &AdminHandler{dashboard: dashboard, roles: roles}
}

func (h *AdminHandler) Dashboard(c *gin.Context) {
	stats := h.dashboard.Stats(c.Request.Context())
	c.JSON(http.StatusOK, dto.DashboardResponse{
		TotalProducts:    stats.TotalProducts,
		LowStockProducts: stats.LowStockProducts,
		TotalOrders:      stats.TotalOrders,
		PendingOrders:    stats.PendingOrders,
		TotalRevenue:     stats.TotalRevenue,
	})
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.roles.ListUsers(c.Request.Context(), c.Query("search"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	out := make([]dto.AdminUserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, dto.AdminUserResponse{
			ID:        u.ID,
			FullName:  u.FullName,
			Email:     u.Email,
			Phone:     u.Phone,
			Role:      u.Role,
			CreatedAt: u.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) ChangeRole(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return
	}
	var req dto.ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.roles.ChangeRole(c.Request.Context(), id, req.Role); err != nil {
		writeRoleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) DeleteUser(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return
	}
	if err := h.roles.DeleteUser(c.Request.Context(), id); err != nil {
		writeRoleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func writeRoleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrLastAdmin):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidRole):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
	case errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
