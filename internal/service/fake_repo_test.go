package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mmeshcher/comfyshop/internal/model"
	"github.com/mmeshcher/comfyshop/internal/repository"
	"github.com/mmeshcher/comfyshop/internal/validation"
)

// fakeRepo хранит данные в памяти с той же семантикой ошибок, что и PostgresRepository.
type fakeRepo struct {
	mu sync.Mutex

	users    map[int64]*model.User
	products map[int64]*model.Product
	carts    map[int64]*model.Cart
	orders   map[int64]*model.Order
	tokens   map[int64]string
	attempts map[int64]int
	nextID   int64

	createOrderErr error
	deleteCartErr  error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:    make(map[int64]*model.User),
		products: make(map[int64]*model.Product),
		carts:    make(map[int64]*model.Cart),
		orders:   make(map[int64]*model.Order),
		tokens:   make(map[int64]string),
		attempts: make(map[int64]int),
	}
}

func (r *fakeRepo) id() int64 {
	r.nextID++
	return r.nextID
}

func (r *fakeRepo) Close() error { return nil }

func (r *fakeRepo) Ping(ctx context.Context) error { return nil }

func (r *fakeRepo) CreateUser(_ context.Context, u *model.User) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return 0, repository.ErrUserExists
		}
	}
	cp := *u
	cp.ID = r.id()
	cp.CreatedAt = time.Now()
	r.users[cp.ID] = &cp
	return cp.ID, nil
}

func (r *fakeRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *fakeRepo) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeRepo) HasAdmin(context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Role == model.RoleAdmin {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepo) SetResetCode(_ context.Context, userID int64, codeHash []byte, expiry time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.ResetCodeHash = codeHash
	u.ResetCodeExpiry = &expiry
	r.attempts[userID] = 0
	return nil
}

func (r *fakeRepo) RecordResetFailure(_ context.Context, userID int64, maxAttempts int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	r.attempts[userID]++
	if r.attempts[userID] >= maxAttempts {
		u.ResetCodeHash = nil
		u.ResetCodeExpiry = nil
	}
	return nil
}

func (r *fakeRepo) UpdatePassword(_ context.Context, userID int64, passwordHash []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	u.ResetCodeHash = nil
	u.ResetCodeExpiry = nil
	r.attempts[userID] = 0
	return nil
}

func (r *fakeRepo) CreateProduct(_ context.Context, p *model.Product) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	cp.ID = r.id()
	if cp.Variants == nil {
		cp.Variants = []model.Variant{}
	}
	r.products[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *fakeRepo) GetProduct(_ context.Context, id int64) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeRepo) ListProducts(context.Context) ([]model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Product{}
	for id := int64(1); id <= r.nextID; id++ {
		if p, ok := r.products[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakeRepo) UpdateProduct(_ context.Context, id int64, patch model.ProductPatch) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
	if patch.Variants != nil {
		p.Variants = *patch.Variants
	}
	if patch.Image != nil {
		p.Image = *patch.Image
	}
	if patch.Thumbnail != nil {
		p.Thumbnail = *patch.Thumbnail
	}
	cp := *p
	return &cp, nil
}

func (r *fakeRepo) DeleteProduct(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(r.products, id)
	return nil
}

func copyCart(c *model.Cart) *model.Cart {
	cp := *c
	cp.Items = append([]model.CartItem{}, c.Items...)
	return &cp
}

func (r *fakeRepo) AddCartItem(_ context.Context, userID int64, item model.CartItem) (*model.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	cart, ok := r.carts[userID]
	if !ok {
		cart = &model.Cart{UserID: userID, Items: []model.CartItem{}}
		r.carts[userID] = cart
	}
	cart.UpdatedAt = &now
	for i := range cart.Items {
		if cart.Items[i].ProductID == item.ProductID {
			if cart.Items[i].Quantity > validation.MaxQuantity-item.Quantity {
				return nil, repository.ErrQuantityOutOfRange
			}
			cart.Items[i].Quantity += item.Quantity
			return copyCart(cart), nil
		}
	}
	cart.Items = append(cart.Items, item)
	return copyCart(cart), nil
}

func (r *fakeRepo) GetCart(_ context.Context, userID int64) (*model.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cart, ok := r.carts[userID]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	return copyCart(cart), nil
}

func (r *fakeRepo) RemoveCartItem(_ context.Context, userID, productID int64) (*model.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cart, ok := r.carts[userID]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	items := cart.Items[:0]
	for _, it := range cart.Items {
		if it.ProductID != productID {
			items = append(items, it)
		}
	}
	cart.Items = items
	return copyCart(cart), nil
}

func (r *fakeRepo) DeleteCart(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteCartErr != nil {
		return r.deleteCartErr
	}
	delete(r.carts, userID)
	return nil
}

func (r *fakeRepo) CreateOrder(_ context.Context, userID int64, items []model.CartItem) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createOrderErr != nil {
		return nil, r.createOrderErr
	}
	now := time.Now()
	o := &model.Order{
		ID:        r.id(),
		UserID:    userID,
		Items:     append([]model.CartItem{}, items...),
		Status:    model.OrderStatusPacking,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.orders[o.ID] = o
	cp := *o
	return &cp, nil
}

func (r *fakeRepo) GetOrdersByUser(_ context.Context, userID int64) ([]model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Order{}
	for id := r.nextID; id > 0; id-- {
		if o, ok := r.orders[id]; ok && o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListOrders(context.Context) ([]model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Order{}
	for id := r.nextID; id > 0; id-- {
		if o, ok := r.orders[id]; ok {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (r *fakeRepo) GetOrder(_ context.Context, id int64) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *fakeRepo) UpdateOrderStatus(_ context.Context, id int64, from, to model.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.Status != from {
		return repository.ErrOrderStatusConflict
	}
	o.Status = to
	o.UpdatedAt = time.Now()
	return nil
}

func (r *fakeRepo) UpsertAdminToken(_ context.Context, userID int64, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[userID] = token
	return nil
}

func (r *fakeRepo) GetAdminToken(_ context.Context, userID int64) (*model.AdminToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[userID]
	if !ok {
		return nil, repository.ErrAdminTokenNotFound
	}
	return &model.AdminToken{UserID: userID, Token: t}, nil
}

var errStoreDown = errors.New("store unavailable")
