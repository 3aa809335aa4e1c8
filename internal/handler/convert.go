package handler

import (
	"github.com/kitchenware/storefront/internal/dto"
	"github.com/kitchenware/storefront/internal/model"
	"github.com/kitchenware/storefront/internal/pricing"
	"github.com/kitchenware/storefront/internal/service"
)

func toProfileResponse(p *model.Profile) dto.ProfileResponse {
	return dto.ProfileResponse{
		ID:        p.ID,
		FullName:  p.FullName,
		Email:     p.Email,
		Phone:     p.Phone,
		CreatedAt: p.CreatedAt,
	}
}

func toCategoryResponses(cats []model.Category) []dto.CategoryResponse {
	out := make([]dto.CategoryResponse, 0, len(cats))
	for _, c := range cats {
		out = append(out, dto.CategoryResponse{
			ID:           c.ID,
			Name:         c.Name,
			Description:  c.Description,
			DisplayOrder: c.DisplayOrder,
		})
	}
	return out
}

func toBannerResponse(b *model.Banner) dto.BannerResponse {
	return dto.BannerResponse{
		ID:           b.ID,
		Title:        b.Title,
		Description:  b.Description,
		ImageURL:     b.ImageURL,
		LinkURL:      b.LinkURL,
		IsActive:     b.IsActive,
		DisplayOrder: b.DisplayOrder,
		CreatedAt:    b.CreatedAt,
	}
}

func toBannerResponses(banners []model.Banner) []dto.BannerResponse {
	out := make([]dto.BannerResponse, 0, len(banners))
	for i := range banners {
		out = append(out, toBannerResponse(&banners[i]))
	}
	return out
}

func toCartResponse(cart *service.CartAggregator) dto.CartResponse {
	items := cart.Items()
	resp := dto.CartResponse{Items: make([]dto.CartItemResponse, 0, len(items)), ItemCount: cart.Count()}
	for _, it := range items {
		resp.Items = append(resp.Items, dto.CartItemResponse{
			ID:        it.ID,
			ProductID: it.ProductID,
			Name:      it.Product.Name,
			Price:     it.Product.Price,
			ImageURL:  it.Product.ImageURL,
			Stock:     it.Product.Stock,
			Quantity:  it.Quantity,
			LineTotal: pricing.LineTotal(pricing.Line{UnitPrice: it.Product.Price, Quantity: it.Quantity}),
		})
	}
	sum := cart.Totals()
	resp.Subtotal = sum.Subtotal
	resp.DeliveryCharge = sum.DeliveryCharge
	resp.Total = sum.Total
	return resp
}

func toOrderResponse(o *model.Order) dto.OrderResponse {
	resp := dto.OrderResponse{
		ID:              o.ID,
		UserID:          o.UserID,
		TotalAmount:     o.TotalAmount,
		PaymentMethod:   o.PaymentMethod,
		PaymentStatus:   o.PaymentStatus,
		OrderStatus:     o.OrderStatus,
		ShippingAddress: o.ShippingAddress,
		Phone:           o.Phone,
		ScreenshotURL:   o.ScreenshotURL,
		Items:           make([]dto.OrderItemResponse, 0, len(o.Items)),
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	for _, it := range o.Items {
		resp.Items = append(resp.Items, dto.OrderItemResponse{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Subtotal:    it.Subtotal,
		})
	}
	if o.Customer != nil {
		customer := toProfileResponse(o.Customer)
		resp.Customer = &customer
	}
	return resp
}

func toOrderListResponse(orders []model.Order) dto.OrderListResponse {
	items := make([]dto.OrderResponse, 0, len(orders))
	for i := range orders {
		items = append(items, toOrderResponse(&orders[i]))
	}
	return dto.OrderListResponse{Orders: items, Total: len(items)}
}
