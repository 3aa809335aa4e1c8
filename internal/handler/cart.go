package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kitchenware/storefront/internal/dto"
	"github.com/kitchenware/storefront/internal/middleware"
	"github.com/kitchenware/storefront/internal/service"
)

type CartHandler struct {
	carts *service.CartFactory
}

func NewCartHandler(carts *service.CartFactory) *CartHandler {
	return &CartHandler{carts: carts}
}

// load builds the caller's cart for this request. It writes the error
// response itself and reports whether the handler may continue.
func (h *CartHandler) load(c *gin.Context) (*service.CartAggregator, bool) {
	cart, err := h.carts.For(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return nil, false
	}
	return cart, true
}

func (h *CartHandler) GetCart(c *gin.Context) {
	cart, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart))
}

func (h *CartHandler) AddItem(c *gin.Context) {
	var req dto.AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cart, ok := h.load(c)
	if !ok {
		return
	}
	if err := cart.Add(c.Request.Context(), req.ProductID, req.Quantity); err != nil {
		writeCartError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toCartResponse(cart))
}

func (h *CartHandler) UpdateItem(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req dto.UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cart, ok := h.load(c)
	if !ok {
		return
	}
	if err := cart.UpdateQuantity(c.Request.Context(), itemID, *req.Quantity); err != nil {
		writeCartError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart))
}

func (h *CartHandler) DeleteItem(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	cart, ok := h.load(c)
	if !ok {
		return
	}
	if err := cart.Remove(c.Request.Context(), itemID); err != nil {
		writeCartError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart))
}

func (h *CartHandler) Clear(c *gin.Context) {
	cart, ok := h.load(c)
	if !ok {
		return
	}
	if err := cart.Clear(c.Request.Context()); err != nil {
		writeCartError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func writeCartError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
	case errors.Is(err, service.ErrCartItemNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "cart item not found"})
	case errors.Is(err, service.ErrOutOfStock), errors.Is(err, service.ErrInsufficientStock):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidQuantity):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
