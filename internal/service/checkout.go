package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/kitchenware/storefront/internal/model"
	"github.com/kitchenware/storefront/internal/pricing"
	"github.com/kitchenware/storefront/internal/repository"
	"github.com/kitchenware/storefront/internal/storage"
)

var ErrEmptyCart = errors.New("cart is empty")

var phonePattern = regexp.MustCompile(`^[+]?[1-9]\d{9,14}$`)

// ValidationError carries one message per offending field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

type Uploader interface {
	Upload(ctx context.Context, bucket, key string, r io.Reader) (string, error)
}

type CheckoutRequest struct {
	Phone           string
	ShippingAddress string
	// Screenshot is the payment proof; ScreenshotName supplies the extension.
	Screenshot     io.Reader
	ScreenshotName string
	CustomerEmail  string
}

type CheckoutService struct {
	orderRepo repository.OrderRepository
	uploader  Uploader
	notifier  Notifier
	shopName  string
	log       *slog.Logger
	now       func() time.Time
}

func NewCheckoutService(orderRepo repository.OrderRepository, uploader Uploader, notifier Notifier, shopName string, log *slog.Logger) *CheckoutService {
	return &CheckoutService{
		orderRepo: orderRepo,
		uploader:  uploader,
		notifier:  notifier,
		shopName:  shopName,
		log:       log,
		now:       time.Now,
	}
}

// ValidateCheckout checks the shipping form. It performs no I/O.
func ValidateCheckout(req CheckoutRequest) error {
	fields := make(map[string]string)

	phone := strings.TrimSpace(req.Phone)
	switch {
	case len(phone) < 10:
		fields["phone"] = "Phone number required"
	case !phonePattern.MatchString(phone):
		fields["phone"] = "Please enter a valid phone number"
	}

	address := strings.TrimSpace(req.ShippingAddress)
	switch {
	case len([]rune(address)) < 10:
		fields["address"] = "Address is required"
	case nonSpaceLen(address) < 10:
		fields["address"] = "Address must contain meaningful content"
	}

	if req.Screenshot == nil {
		fields["payment_screenshot"] = "Payment screenshot is required"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func nonSpaceLen(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

// PlaceOrder turns the aggregator's current cart into an order. The cart must
// already be loaded. Order, items and cart clear commit together; if that
// fails the cart is untouched and the uploaded screenshot is left behind.
func (s *CheckoutService) PlaceOrder(ctx context.Context, cart *CartAggregator, req CheckoutRequest) (*model.Order, error) {
	userID := cart.UserID()
	if userID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	items := cart.Items()
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	if err := ValidateCheckout(req); err != nil {
		return nil, err
	}

	log := s.log.With("user_id", userID)

	key := fmt.Sprintf("%s-%d.%s", userID, s.now().UnixMilli(), fileExt(req.ScreenshotName))
	screenshotURL, err := s.uploader.Upload(ctx, storage.BucketPaymentScreenshots, key, req.Screenshot)
	if err != nil {
		return nil, fmt.Errorf("upload payment screenshot: %w", err)
	}

	summary := cart.Totals()
	order := &model.Order{
		UserID:          userID,
		TotalAmount:     summary.Total,
		PaymentMethod:   model.PaymentMethodBankTransfer,
		PaymentStatus:   model.PaymentStatusPending,
		OrderStatus:     model.OrderStatusPending,
		ShippingAddress: strings.TrimSpace(req.ShippingAddress),
		Phone:           strings.TrimSpace(req.Phone),
		ScreenshotURL:   &screenshotURL,
		Items:           make([]model.OrderItem, 0, len(items)),
	}
	for _, it := range items {
		productID := it.ProductID
		order.Items = append(order.Items, model.OrderItem{
			ProductID:   &productID,
			ProductName: it.Product.Name,
			Quantity:    it.Quantity,
			UnitPrice:   it.Product.Price,
			Subtotal:    pricing.LineTotal(pricing.Line{UnitPrice: it.Product.Price, Quantity: it.Quantity}),
		})
	}

	if err := s.orderRepo.PlaceOrder(ctx, order); err != nil {
		log.Error("place order failed, screenshot orphaned", "bucket", storage.BucketPaymentScreenshots, "key", key, "error", err)
		return nil, fmt.Errorf("place order: %w", err)
	}
	log.Info("order placed", "order_id", order.ID, "total", order.TotalAmount.StringFixed(2))

	_ = cart.Reload(ctx)
	s.notifyOrderReceived(ctx, log, order, summary, req.CustomerEmail)
	return order, nil
}

func (s *CheckoutService) notifyOrderReceived(ctx context.Context, log *slog.Logger, order *model.Order, summary pricing.Summary, to string) {
	if s.notifier == nil || to == "" {
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Thank you for your order %s.\n\n", order.ID)
	for _, it := range order.Items {
		fmt.Fprintf(&b, "%d x %s  %s\n", it.Quantity, it.ProductName, it.Subtotal.StringFixed(2))
	}
	fmt.Fprintf(&b, "\nSubtotal: %s\nDelivery: %s\nTotal: %s\n",
		summary.Subtotal.StringFixed(2), summary.DeliveryCharge.StringFixed(2), summary.Total.StringFixed(2))
	b.WriteString("\nWe will confirm your bank transfer shortly.\n")

	err := s.notifier.Publish(ctx, model.Notification{
		Kind:    model.NotificationOrderReceived,
		To:      to,
		Subject: s.shopName + ": order received",
		Body:    b.String(),
	})
	if err != nil {
		log.Warn("publish order notification", "order_id", order.ID, "error", err)
	}
}

// fileExt mirrors the upload naming: the text after the last dot, or the
// whole name when there is none.
func fileExt(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	name = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' {
			return -1
		}
		return r
	}, name)
	if name == "" {
		return "bin"
	}
	return name
}
