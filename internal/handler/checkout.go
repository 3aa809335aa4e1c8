package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kitchenware/storefront/internal/middleware"
	"github.com/kitchenware/storefront/internal/service"
)

type CheckoutHandler struct {
	carts          *service.CartFactory
	checkout       *service.CheckoutService
	maxUploadBytes int64
}

func NewCheckoutHandler(carts *service.CartFactory, checkout *service.CheckoutService, maxUploadBytes int64) *CheckoutHandler {
	return &CheckoutHandler{carts: carts, checkout: checkout, maxUploadBytes: maxUploadBytes}
}

// PlaceOrder takes a multipart form: phone, shipping_address and the
// payment_screenshot file.
func (h *CheckoutHandler) PlaceOrder(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	req := service.CheckoutRequest{CustomerEmail: middleware.GetEmail(c)}

	fh, err := c.FormFile("payment_screenshot")
	switch {
	case err == nil:
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read payment screenshot"})
			return
		}
		defer f.Close()
		req.Screenshot = f
		req.ScreenshotName = fh.Filename
	case errors.Is(err, http.ErrMissingFile):
	default:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload is too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return
	}
	req.Phone = c.PostForm("phone")
	req.ShippingAddress = c.PostForm("shipping_address")

	cart, err := h.carts.For(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	order, err := h.checkout.PlaceOrder(c.Request.Context(), cart, req)
	if err != nil {
		var verr *service.ValidationError
		switch {
		case errors.As(err, &verr):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "fields": verr.Fields})
		case errors.Is(err, service.ErrEmptyCart):
			c.JSON(http.StatusBadRequest, gin.H{"error": "cart is empty"})
		case errors.Is(err, service.ErrUnauthenticated):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to place order"})
		}
		return
	}

	c.JSON(http.StatusCreated, toOrderResponse(order))
}
