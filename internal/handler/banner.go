package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kitchenware/storefront/internal/dto"
	"github.com/kitchenware/storefront/internal/model"
	"github.com/kitchenware/storefront/internal/service"
)

type BannerHandler struct {
	bannerService *service.BannerService
}

func NewBannerHandler(bannerService *service.BannerService) *BannerHandler {
	return &BannerHandler{bannerService: bannerService}
}

func (h *BannerHandler) ListActive(c *gin.Context) {
	banners, err := h.bannerService.ListActive(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, toBannerResponses(banners))
}

func (h *BannerHandler) ListAll(c *gin.Context) {
	banners, err := h.bannerService.ListAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, toBannerResponses(banners))
}

func bannerFromRequest(req dto.BannerRequest) *model.Banner {
	b := &model.Banner{
		Title:        req.Title,
		Description:  req.Description,
		ImageURL:     req.ImageURL,
		LinkURL:      req.LinkURL,
		IsActive:     true,
		DisplayOrder: req.DisplayOrder,
	}
	if req.IsActive != nil {
		b.IsActive = *req.IsActive
	}
	return b
}

func (h *BannerHandler) Create(c *gin.Context) {
	var req dto.BannerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	b := bannerFromRequest(req)
	if err := h.bannerService.Create(c.Request.Context(), b); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusCreated, toBannerResponse(b))
}

func (h *BannerHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid banner ID"})
		return
	}
	var req dto.BannerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	b := bannerFromRequest(req)
	b.ID = id
	if err := h.bannerService.Update(c.Request.Context(), b); err != nil {
		writeBannerError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBannerResponse(b))
}

func (h *BannerHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid banner ID"})
		return
	}
	if err := h.bannerService.Delete(c.Request.Context(), id); err != nil {
		writeBannerError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *BannerHandler) Toggle(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid banner ID"})
		return
	}
	active, err := h.bannerService.Toggle(c.Request.Context(), id)
	if err != nil {
		writeBannerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"is_active": active})
}

func writeBannerError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrBannerNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "banner not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
