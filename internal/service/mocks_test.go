package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/kitchenware/storefront/internal/model"
	"github.com/kitchenware/storefront/internal/repository"
	"github.com/kitchenware/storefront/internal/session"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func newSessionStore(t *testing.T) *session.Store {
	t.Helper()
	client, _ := newRedis(t)
	return session.NewStore(client, time.Hour)
}

// --- users & profiles ---

type mockProfileRepo struct {
	profiles map[uuid.UUID]*model.Profile
	err      error
}

func newMockProfileRepo() *mockProfileRepo {
	return &mockProfileRepo{profiles: make(map[uuid.UUID]*model.Profile)}
}

func (m *mockProfileRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Profile, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.profiles[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *mockProfileRepo) List(_ context.Context, search string) ([]model.Profile, error) {
	var out []model.Profile
	for _, p := range m.profiles {
		if search == "" || strings.Contains(strings.ToLower(p.FullName+" "+p.Email), strings.ToLower(search)) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (m *mockProfileRepo) Update(_ context.Context, p *model.Profile) error {
	if _, ok := m.profiles[p.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *p
	m.profiles[p.ID] = &cp
	return nil
}

type mockUserRepo struct {
	users    map[string]*model.User
	byID     map[uuid.UUID]*model.User
	profiles *mockProfileRepo
}

func newMockUserRepo(profiles *mockProfileRepo) *mockUserRepo {
	return &mockUserRepo{
		users:    make(map[string]*model.User),
		byID:     make(map[uuid.UUID]*model.User),
		profiles: profiles,
	}
}

func (m *mockUserRepo) CreateWithProfile(_ context.Context, user *model.User, profile *model.Profile) error {
	if _, ok := m.users[strings.ToLower(user.Email)]; ok {
		return repository.ErrDuplicateEmail
	}
	user.ID = uuid.New()
	user.CreatedAt = time.Now()
	m.users[strings.ToLower(user.Email)] = user
	m.byID[user.ID] = user
	profile.ID = user.ID
	m.profiles.profiles[user.ID] = profile
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	return m.byID[id], nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return m.users[strings.ToLower(email)], nil
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	u, ok := m.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	u.Password = hash
	return nil
}

type mockRoleRepo struct {
	assignments []model.RoleAssignment
	profiles    *mockProfileRepo
	setCalls    int
}

func (m *mockRoleRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]model.Role, error) {
	var out []model.Role
	for _, a := range m.assignments {
		if a.UserID == userID {
			out = append(out, a.Role)
		}
	}
	return out, nil
}

func (m *mockRoleRepo) ListAll(_ context.Context) ([]model.RoleAssignment, error) {
	return append([]model.RoleAssignment(nil), m.assignments...), nil
}

func (m *mockRoleRepo) admins() []uuid.UUID {
	var ids []uuid.UUID
	for _, a := range m.assignments {
		if a.Role == model.RoleAdmin {
			ids = append(ids, a.UserID)
		}
	}
	return ids
}

func (m *mockRoleRepo) SetRole(_ context.Context, userID uuid.UUID, role model.Role, check repository.AdminCheck) error {
	m.setCalls++
	if check != nil {
		if err := check(m.admins()); err != nil {
			return err
		}
	}
	updated := false
	for i := range m.assignments {
		if m.assignments[i].UserID == userID {
			m.assignments[i].Role = role
			updated = true
		}
	}
	if !updated {
		m.assignments = append(m.assignments, model.RoleAssignment{ID: uuid.New(), UserID: userID, Role: role})
	}
	return nil
}

func (m *mockRoleRepo) DeleteUser(_ context.Context, userID uuid.UUID, check repository.AdminCheck) error {
	if check != nil {
		if err := check(m.admins()); err != nil {
			return err
		}
	}
	kept := m.assignments[:0]
	for _, a := range m.assignments {
		if a.UserID != userID {
			kept = append(kept, a)
		}
	}
	m.assignments = kept
	if _, ok := m.profiles.profiles[userID]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.profiles.profiles, userID)
	return nil
}

// --- notifications & storage ---

type mockNotifier struct {
	mu   sync.Mutex
	sent []model.Notification
	err  error
}

func (m *mockNotifier) Publish(_ context.Context, n model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, n)
	return nil
}

type mockUploader struct {
	calls   int
	bucket  string
	key     string
	err     error
	deleted []string
}

func (m *mockUploader) Upload(_ context.Context, bucket, key string, r io.Reader) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	m.bucket, m.key = bucket, key
	return "http://localhost/storage/" + bucket + "/" + key, nil
}

func (m *mockUploader) Delete(_ context.Context, bucket, key string) error {
	m.deleted = append(m.deleted, bucket+"/"+key)
	return nil
}

// --- catalog ---

type mockProductRepo struct {
	products    map[uuid.UUID]*model.Product
	getCalls    int
	setImageErr error
}

func newMockProductRepo() *mockProductRepo {
	return &mockProductRepo{products: make(map[uuid.UUID]*model.Product)}
}

func (m *mockProductRepo) add(name string, price int64, stock int) *model.Product {
	p := &model.Product{ID: uuid.New(), Name: name, Price: decimal.NewFromInt(price), Stock: stock, CreatedAt: time.Now()}
	m.products[p.ID] = p
	return p
}

func (m *mockProductRepo) Create(_ context.Context, p *model.Product) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	m.getCalls++
	p, ok := m.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *mockProductRepo) List(_ context.Context, f repository.ProductFilter) ([]model.Product, error) {
	var out []model.Product
	for _, p := range m.products {
		if f.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Search)) {
			continue
		}
		if f.CategoryID != nil && (p.CategoryID == nil || *p.CategoryID != *f.CategoryID) {
			continue
		}
		if f.FeaturedOnly && !p.IsFeatured {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *mockProductRepo) Update(_ context.Context, p *model.Product) error {
	if _, ok := m.products[p.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

func (m *mockProductRepo) SetImage(_ context.Context, id uuid.UUID, url string) error {
	if m.setImageErr != nil {
		return m.setImageErr
	}
	p, ok := m.products[id]
	if !ok {
		return pgx.ErrNoRows
	}
	p.ImageURL = &url
	return nil
}

func (m *mockProductRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.products[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.products, id)
	return nil
}

func (m *mockProductRepo) Count(context.Context) (int, error) { return len(m.products), nil }

func (m *mockProductRepo) CountLowStock(context.Context) (int, error) {
	n := 0
	for _, p := range m.products {
		if p.Stock < repository.LowStockThreshold {
			n++
		}
	}
	return n, nil
}

type mockCategoryRepo struct {
	categories map[uuid.UUID]*model.Category
}

func (m *mockCategoryRepo) List(_ context.Context, limit int) ([]model.Category, error) {
	var out []model.Category
	for _, c := range m.categories {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockCategoryRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Category, error) {
	return m.categories[id], nil
}

type mockOfferRepo struct {
	offers map[uuid.UUID]decimal.Decimal
}

func (m *mockOfferRepo) ActiveFor(_ context.Context, productID uuid.UUID) (*model.Offer, error) {
	d, ok := m.offers[productID]
	if !ok {
		return nil, nil
	}
	return &model.Offer{ID: uuid.New(), ProductID: productID, DiscountPercentage: d, IsActive: true}, nil
}

func (m *mockOfferRepo) ListActive(context.Context) ([]model.Offer, error) {
	var out []model.Offer
	for pid, d := range m.offers {
		out = append(out, model.Offer{ID: uuid.New(), ProductID: pid, DiscountPercentage: d, IsActive: true})
	}
	return out, nil
}

func (m *mockOfferRepo) Upsert(_ context.Context, productID uuid.UUID, percent *decimal.Decimal) error {
	if percent == nil {
		delete(m.offers, productID)
		return nil
	}
	m.offers[productID] = *percent
	return nil
}

// --- cart & orders ---

type mockCartRepo struct {
	items    map[uuid.UUID]*model.CartItem
	products *mockProductRepo
	calls    int
	listErr  error
}

func newMockCartRepo(products *mockProductRepo) *mockCartRepo {
	return &mockCartRepo{items: make(map[uuid.UUID]*model.CartItem), products: products}
}

func (m *mockCartRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]model.CartItem, error) {
	m.calls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []model.CartItem
	for _, it := range m.items {
		if it.UserID != userID {
			continue
		}
		row := *it
		if p, ok := m.products.products[it.ProductID]; ok {
			row.Product = model.CartProduct{Name: p.Name, Price: p.Price, ImageURL: p.ImageURL, Stock: p.Stock}
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Product.Name < out[j].Product.Name })
	return out, nil
}

func (m *mockCartRepo) Insert(_ context.Context, userID, productID uuid.UUID, quantity int) error {
	m.calls++
	for _, it := range m.items {
		if it.UserID == userID && it.ProductID == productID {
			it.Quantity += quantity
			return nil
		}
	}
	id := uuid.New()
	m.items[id] = &model.CartItem{ID: id, UserID: userID, ProductID: productID, Quantity: quantity, CreatedAt: time.Now()}
	return nil
}

func (m *mockCartRepo) UpdateQuantity(_ context.Context, userID, itemID uuid.UUID, quantity int) error {
	m.calls++
	it, ok := m.items[itemID]
	if !ok || it.UserID != userID {
		return pgx.ErrNoRows
	}
	it.Quantity = quantity
	return nil
}

func (m *mockCartRepo) Delete(_ context.Context, userID, itemID uuid.UUID) error {
	m.calls++
	it, ok := m.items[itemID]
	if !ok || it.UserID != userID {
		return pgx.ErrNoRows
	}
	delete(m.items, itemID)
	return nil
}

func (m *mockCartRepo) ClearByUser(_ context.Context, userID uuid.UUID) error {
	m.calls++
	for id, it := range m.items {
		if it.UserID == userID {
			delete(m.items, id)
		}
	}
	return nil
}

func (m *mockCartRepo) rows(userID uuid.UUID) int {
	n := 0
	for _, it := range m.items {
		if it.UserID == userID {
			n++
		}
	}
	return n
}

type mockOrderRepo struct {
	orders   map[uuid.UUID]*model.Order
	carts    *mockCartRepo
	placeErr error
	calls    int
}

func newMockOrderRepo(carts *mockCartRepo) *mockOrderRepo {
	return &mockOrderRepo{orders: make(map[uuid.UUID]*model.Order), carts: carts}
}

// PlaceOrder behaves like the transactional repository: all or nothing.
func (m *mockOrderRepo) PlaceOrder(ctx context.Context, o *model.Order) error {
	m.calls++
	if m.placeErr != nil {
		return m.placeErr
	}
	o.ID = uuid.New()
	o.CreatedAt = time.Now()
	for i := range o.Items {
		o.Items[i].ID = uuid.New()
		o.Items[i].OrderID = o.ID
	}
	cp := *o
	m.orders[o.ID] = &cp
	if m.carts != nil {
		return m.carts.ClearByUser(ctx, o.UserID)
	}
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	m.calls++
	o, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]model.Order, error) {
	m.calls++
	var out []model.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) ListAll(_ context.Context, status model.OrderStatus) ([]model.Order, error) {
	m.calls++
	var out []model.Order
	for _, o := range m.orders {
		if status == "" || o.OrderStatus == status {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *mockOrderRepo) UpdateOrderStatus(_ context.Context, id uuid.UUID, s model.OrderStatus) error {
	o, ok := m.orders[id]
	if !ok {
		return pgx.ErrNoRows
	}
	o.OrderStatus = s
	return nil
}

func (m *mockOrderRepo) UpdatePaymentStatus(_ context.Context, id uuid.UUID, s model.PaymentStatus) error {
	o, ok := m.orders[id]
	if !ok {
		return pgx.ErrNoRows
	}
	o.PaymentStatus = s
	return nil
}

func (m *mockOrderRepo) Stats(context.Context) (int, int, decimal.Decimal, error) {
	total, pending, revenue := 0, 0, decimal.Zero
	for _, o := range m.orders {
		total++
		if o.OrderStatus == model.OrderStatusPending {
			pending++
		}
		if o.PaymentStatus == model.PaymentStatusConfirmed {
			revenue = revenue.Add(o.TotalAmount)
		}
	}
	return total, pending, revenue, nil
}

type mockBannerRepo struct {
	banners map[uuid.UUID]*model.Banner
}

func (m *mockBannerRepo) List(_ context.Context, activeOnly bool, limit int) ([]model.Banner, error) {
	var out []model.Banner
	for _, b := range m.banners {
		if activeOnly && !b.IsActive {
			continue
		}
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockBannerRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Banner, error) {
	b, ok := m.banners[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (m *mockBannerRepo) Create(_ context.Context, b *model.Banner) error {
	b.ID = uuid.New()
	cp := *b
	m.banners[b.ID] = &cp
	return nil
}

func (m *mockBannerRepo) Update(_ context.Context, b *model.Banner) error {
	if _, ok := m.banners[b.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *b
	m.banners[b.ID] = &cp
	return nil
}

func (m *mockBannerRepo) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	b, ok := m.banners[id]
	if !ok {
		return pgx.ErrNoRows
	}
	b.IsActive = active
	return nil
}

func (m *mockBannerRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.banners[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.banners, id)
	return nil
}

var errBoom = errors.New("boom")
