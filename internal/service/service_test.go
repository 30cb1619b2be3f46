package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/comfyshop/internal/auth"
	"github.com/mmeshcher/comfyshop/internal/model"
	"github.com/mmeshcher/comfyshop/internal/repository"
	"github.com/mmeshcher/comfyshop/internal/storage"
	"github.com/mmeshcher/comfyshop/internal/validation"
)

type stubNotifier struct {
	mu         sync.Mutex
	created    []model.Product
	lowStock   []model.Product
	resetCodes map[string]string
	pushes     []string
	pushErr    error
}

func (n *stubNotifier) NotifyProductCreated(p model.Product) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, p)
}

func (n *stubNotifier) NotifyLowStock(p model.Product) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.lowStock = append(n.lowStock, p)
}

func (n *stubNotifier) SendPasswordResetCode(email, _, code string, _ time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.resetCodes == nil {
		n.resetCodes = make(map[string]string)
	}
	n.resetCodes[email] = code
}

func (n *stubNotifier) SendPush(_ context.Context, token, title, _ string) error {
	if n.pushErr != nil {
		return n.pushErr
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pushes = append(n.pushes, token+":"+title)
	return nil
}

type stubRecorder struct {
	outcomes []string
}

func (r *stubRecorder) RecordCheckout(outcome string) {
	r.outcomes = append(r.outcomes, outcome)
}

type stubGoogle struct {
	user *auth.GoogleUser
	err  error
}

func (g *stubGoogle) Verify(context.Context, string) (*auth.GoogleUser, error) {
	return g.user, g.err
}

type stubImages struct {
	err   error
	saved []string
}

func (s *stubImages) SaveImage(_ context.Context, filename string, r io.Reader) (*storage.Image, error) {
	if s.err != nil {
		return nil, s.err
	}
	_, _ = io.ReadAll(r)
	s.saved = append(s.saved, filename)
	return &storage.Image{
		URL:          "https://cdn.example.com/products/" + filename,
		ThumbnailURL: "https://cdn.example.com/products/thumb_" + filename,
	}, nil
}

type testEnv struct {
	svc      *Service
	repo     *fakeRepo
	codec    *auth.Codec
	notifier *stubNotifier
	metrics  *stubRecorder
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	env := &testEnv{
		repo:     newFakeRepo(),
		codec:    auth.NewCodec([]byte("test-secret"), time.Hour),
		notifier: &stubNotifier{},
		metrics:  &stubRecorder{},
	}
	opts.Notifier = env.notifier
	opts.Metrics = env.metrics
	if opts.LowStockThreshold == 0 {
		opts.LowStockThreshold = 5
	}
	env.svc = NewService(env.repo, env.codec, zap.NewNop(), opts)
	return env
}

func (e *testEnv) register(t *testing.T, name, email string) *Session {
	t.Helper()
	s, err := e.svc.Register(context.Background(), RegisterInput{
		Name: name, Email: email, Password: "secret", ConfirmPassword: "secret",
	})
	require.NoError(t, err)
	return s
}

func (e *testEnv) product(t *testing.T, name, price string, stock int) *model.Product {
	t.Helper()
	p, err := e.repo.CreateProduct(context.Background(), &model.Product{
		Name: name, Price: decimal.RequireFromString(price), Stock: stock,
	})
	require.NoError(t, err)
	return p
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name    string
		in      RegisterInput
		wantErr error
	}{
		{
			name:    "missing name",
			in:      RegisterInput{Email: "a@example.com", Password: "x", ConfirmPassword: "x"},
			wantErr: ErrMissingFields,
		},
		{
			name:    "missing confirmation",
			in:      RegisterInput{Name: "Ann", Email: "a@example.com", Password: "x"},
			wantErr: ErrMissingFields,
		},
		{
			name:    "password mismatch",
			in:      RegisterInput{Name: "Ann", Email: "a@example.com", Password: "x", ConfirmPassword: "y"},
			wantErr: ErrPasswordMismatch,
		},
		{
			name:    "invalid email",
			in:      RegisterInput{Name: "Ann", Email: "not-an-email", Password: "x", ConfirmPassword: "x"},
			wantErr: ErrInvalidEmail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, Options{})
			_, err := env.svc.Register(context.Background(), tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRegister_IssuesVerifiableToken(t *testing.T) {
	env := newTestEnv(t, Options{})

	s := env.register(t, "Ann", " Ann@Example.com ")
	assert.Equal(t, "ann@example.com", s.User.Email)
	assert.Equal(t, model.RoleUser, s.User.Role)

	id, err := env.codec.Verify(s.Token)
	require.NoError(t, err)
	assert.Equal(t, s.User.ID, id.UserID)
	assert.Equal(t, model.RoleUser, id.Role)

	_, err = env.svc.Register(context.Background(), RegisterInput{
		Name: "Other", Email: "ANN@example.com", Password: "p", ConfirmPassword: "p",
	})
	assert.ErrorIs(t, err, repository.ErrUserExists)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t, Options{})
	registered := env.register(t, "Ann", "ann@example.com")

	s, err := env.svc.Login(context.Background(), "ANN@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, registered.User, s.User)

	_, err = env.svc.Login(context.Background(), "ann@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.svc.Login(context.Background(), "nobody@example.com", "secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.svc.Login(context.Background(), "", "secret")
	assert.ErrorIs(t, err, ErrMissingFields)
}

func TestGoogleLogin(t *testing.T) {
	google := &stubGoogle{user: &auth.GoogleUser{Subject: "1", Email: "Bob@Example.com", Name: "Bob"}}
	env := newTestEnv(t, Options{Google: google})

	first, err := env.svc.GoogleLogin(context.Background(), "id-token")
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", first.User.Email)
	assert.Equal(t, "Bob", first.User.Name)

	second, err := env.svc.GoogleLogin(context.Background(), "id-token")
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, second.User.ID)

	_, err = env.svc.Login(context.Background(), "bob@example.com", "anything")
	assert.ErrorIs(t, err, ErrInvalidCredentials, "oauth-only account has no password")

	google.err = auth.ErrInvalidGoogleToken
	_, err = env.svc.GoogleLogin(context.Background(), "forged")
	assert.ErrorIs(t, err, ErrInvalidGoogleToken)

	_, err = env.svc.GoogleLogin(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingFields)
}

func TestPasswordReset(t *testing.T) {
	env := newTestEnv(t, Options{ResetCodeTTL: 15 * time.Minute})
	env.register(t, "Ann", "ann@example.com")
	ctx := context.Background()

	assert.ErrorIs(t, env.svc.ForgotPassword(ctx, "nobody@example.com"), ErrUnknownEmail)

	require.NoError(t, env.svc.ForgotPassword(ctx, "Ann@example.com"))
	code := env.notifier.resetCodes["ann@example.com"]
	require.Len(t, code, 6)

	assert.ErrorIs(t, env.svc.ResetPassword(ctx, "ann@example.com", "000000x", "new"), ErrInvalidResetCode)
	assert.ErrorIs(t, env.svc.ResetPassword(ctx, "nobody@example.com", code, "new"), ErrInvalidResetCode)

	require.NoError(t, env.svc.ResetPassword(ctx, "ann@example.com", code, "new-secret"))

	_, err := env.svc.Login(ctx, "ann@example.com", "new-secret")
	require.NoError(t, err)

	assert.ErrorIs(t, env.svc.ResetPassword(ctx, "ann@example.com", code, "again"), ErrInvalidResetCode,
		"code is single-use")
}

func TestPasswordReset_Expired(t *testing.T) {
	env := newTestEnv(t, Options{ResetCodeTTL: time.Minute})
	env.register(t, "Ann", "ann@example.com")
	ctx := context.Background()

	require.NoError(t, env.svc.ForgotPassword(ctx, "ann@example.com"))
	code := env.notifier.resetCodes["ann@example.com"]

	env.svc.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	assert.ErrorIs(t, env.svc.ResetPassword(ctx, "ann@example.com", code, "new"), ErrInvalidResetCode)
}

func TestPasswordReset_TooManyAttempts(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.register(t, "Ann", "ann@example.com")
	ctx := context.Background()

	require.NoError(t, env.svc.ForgotPassword(ctx, "ann@example.com"))
	code := env.notifier.resetCodes["ann@example.com"]

	for i := 0; i < maxResetAttempts; i++ {
		assert.ErrorIs(t, env.svc.ResetPassword(ctx, "ann@example.com", wrongCode(code), "new"), ErrInvalidResetCode)
	}
	assert.ErrorIs(t, env.svc.ResetPassword(ctx, "ann@example.com", code, "new"), ErrInvalidResetCode,
		"code is revoked after too many wrong guesses")

	require.NoError(t, env.svc.ForgotPassword(ctx, "ann@example.com"))
	fresh := env.notifier.resetCodes["ann@example.com"]
	for i := 0; i < maxResetAttempts-1; i++ {
		assert.ErrorIs(t, env.svc.ResetPassword(ctx, "ann@example.com", wrongCode(fresh), "new"), ErrInvalidResetCode)
	}
	require.NoError(t, env.svc.ResetPassword(ctx, "ann@example.com", fresh, "new-secret"),
		"a new code starts a new attempt budget")
}

func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

func TestSeedAdmin(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()

	require.NoError(t, env.svc.SeedAdmin(ctx, "", ""))
	require.NoError(t, env.svc.SeedAdmin(ctx, "admin@example.com", "root"))
	require.NoError(t, env.svc.SeedAdmin(ctx, "other@example.com", "root"))

	s, err := env.svc.Login(ctx, "admin@example.com", "root")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, s.User.Role)

	_, err = env.repo.GetUserByEmail(ctx, "other@example.com")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestProfile(t *testing.T) {
	env := newTestEnv(t, Options{})
	s := env.register(t, "Ann", "ann@example.com")

	p, err := env.svc.Profile(context.Background(), s.User.ID)
	require.NoError(t, err)
	assert.Equal(t, s.User, *p)

	_, err = env.svc.Profile(context.Background(), 999)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestAddItem_MergesByProduct(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	p := env.product(t, "Lamp", "12.50", 10)

	_, err := env.svc.AddItem(ctx, 1, p.ID, 2)
	require.NoError(t, err)
	cart, err := env.svc.AddItem(ctx, 1, p.ID, 3)
	require.NoError(t, err)

	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
	assert.Equal(t, "Lamp", cart.Items[0].Name)
}

func TestAddItem_Validation(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	p := env.product(t, "Lamp", "12.50", 10)

	_, err := env.svc.AddItem(ctx, 1, p.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = env.svc.AddItem(ctx, 1, p.ID, validation.MaxQuantity+1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = env.svc.AddItem(ctx, 1, 999, 1)
	assert.ErrorIs(t, err, repository.ErrProductNotFound)

	cart, err := env.svc.GetCart(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, cart.Items, "failed adds must not create a cart")
}

func TestAddItem_QuantityOverflow(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	p := env.product(t, "Lamp", "12.50", 10)

	_, err := env.svc.AddItem(ctx, 1, p.ID, validation.MaxQuantity)
	require.NoError(t, err)

	_, err = env.svc.AddItem(ctx, 1, p.ID, 1)
	assert.ErrorIs(t, err, repository.ErrQuantityOutOfRange)

	cart, err := env.svc.GetCart(ctx, 1)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, validation.MaxQuantity, cart.Items[0].Quantity)
}

func TestAddItem_SnapshotsPrice(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	p := env.product(t, "Lamp", "10", 10)

	_, err := env.svc.AddItem(ctx, 1, p.ID, 1)
	require.NoError(t, err)

	newPrice := decimal.NewFromInt(99)
	_, err = env.repo.UpdateProduct(ctx, p.ID, model.ProductPatch{Price: &newPrice})
	require.NoError(t, err)

	cart, err := env.svc.GetCart(ctx, 1)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(10).Equal(cart.Items[0].Price))
}

func TestCartIsolationBetweenUsers(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	p := env.product(t, "Lamp", "10", 10)

	_, err := env.svc.AddItem(ctx, 1, p.ID, 1)
	require.NoError(t, err)

	other, err := env.svc.GetCart(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, other.Items)
	assert.Equal(t, int64(2), other.UserID)
}

func TestRemoveItemAndClear(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	lamp := env.product(t, "Lamp", "10", 10)
	rug := env.product(t, "Rug", "30", 10)

	_, err := env.svc.RemoveItem(ctx, 1, lamp.ID)
	assert.ErrorIs(t, err, repository.ErrCartNotFound)

	_, err = env.svc.AddItem(ctx, 1, lamp.ID, 1)
	require.NoError(t, err)
	_, err = env.svc.AddItem(ctx, 1, rug.ID, 1)
	require.NoError(t, err)

	cart, err := env.svc.RemoveItem(ctx, 1, lamp.ID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, rug.ID, cart.Items[0].ProductID)

	cart, err = env.svc.RemoveItem(ctx, 1, lamp.ID)
	require.NoError(t, err, "removing an absent product is idempotent")
	assert.Len(t, cart.Items, 1)

	require.NoError(t, env.svc.ClearCart(ctx, 1))
	require.NoError(t, env.svc.ClearCart(ctx, 1))

	cart, err = env.svc.GetCart(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestCheckout_Total(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	a := env.product(t, "Chair", "10", 10)
	b := env.product(t, "Cushion", "5", 10)

	_, err := env.svc.AddItem(ctx, 1, a.ID, 2)
	require.NoError(t, err)
	_, err = env.svc.AddItem(ctx, 1, b.ID, 1)
	require.NoError(t, err)

	res, err := env.svc.Checkout(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "25", res.Total.String())
	assert.Equal(t, []string{CheckoutCompleted}, env.metrics.outcomes)
}

func TestCheckout_EmptyCart(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	p := env.product(t, "Chair", "10", 10)

	_, err := env.svc.Checkout(ctx, 1)
	assert.ErrorIs(t, err, ErrEmptyCart)

	_, err = env.svc.AddItem(ctx, 1, p.ID, 1)
	require.NoError(t, err)
	_, err = env.svc.RemoveItem(ctx, 1, p.ID)
	require.NoError(t, err)

	_, err = env.svc.Checkout(ctx, 1)
	assert.ErrorIs(t, err, ErrEmptyCart)

	orders, err := env.svc.OrdersByUser(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestCheckout_OrderFailureKeepsCart(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	p := env.product(t, "Chair", "10", 10)
	_, err := env.svc.AddItem(ctx, 1, p.ID, 2)
	require.NoError(t, err)

	env.repo.createOrderErr = errStoreDown
	_, err = env.svc.Checkout(ctx, 1)
	assert.ErrorIs(t, err, errStoreDown)

	cart, err := env.svc.GetCart(ctx, 1)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.Equal(t, []string{CheckoutFailed}, env.metrics.outcomes)
}

func TestCheckout_CartDeleteFailureStillSucceeds(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	p := env.product(t, "Chair", "10", 10)
	_, err := env.svc.AddItem(ctx, 1, p.ID, 1)
	require.NoError(t, err)

	env.repo.deleteCartErr = errStoreDown
	res, err := env.svc.Checkout(ctx, 1)
	require.NoError(t, err)
	assert.NotZero(t, res.OrderID)

	env.repo.deleteCartErr = nil
	require.NoError(t, env.svc.ClearCart(ctx, 1))
}

func TestCheckoutScenario(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()

	registered := env.register(t, "Ann", "ann@example.com")
	session, err := env.svc.Login(ctx, "ann@example.com", "secret")
	require.NoError(t, err)
	identity, err := env.codec.Verify(session.Token)
	require.NoError(t, err)
	require.Equal(t, registered.User.ID, identity.UserID)
	userID := identity.UserID

	p1 := env.product(t, "Armchair", "20", 10)

	_, err = env.svc.AddItem(ctx, userID, p1.ID, 1)
	require.NoError(t, err)
	_, err = env.svc.AddItem(ctx, userID, p1.ID, 2)
	require.NoError(t, err)

	cart, err := env.svc.GetCart(ctx, userID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)
	assert.True(t, decimal.NewFromInt(20).Equal(cart.Items[0].Price))

	res, err := env.svc.Checkout(ctx, userID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(60).Equal(res.Total))

	orders, err := env.svc.OrdersByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, res.OrderID, orders[0].ID)
	assert.Equal(t, model.OrderStatusPacking, orders[0].Status)
	require.Len(t, orders[0].Items, 1)
	assert.Equal(t, p1.ID, orders[0].Items[0].ProductID)
	assert.Equal(t, 3, orders[0].Items[0].Quantity)
	assert.True(t, decimal.NewFromInt(60).Equal(orders[0].Total()))

	cart, err = env.svc.GetCart(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestCreateProduct(t *testing.T) {
	images := &stubImages{}
	env := newTestEnv(t, Options{Images: images, LowStockThreshold: 3})
	ctx := context.Background()

	_, err := env.svc.CreateProduct(ctx, model.Product{Name: "  "}, nil)
	assert.ErrorIs(t, err, ErrMissingFields)

	p, err := env.svc.CreateProduct(ctx, model.Product{
		Name: "Sofa", Price: decimal.NewFromInt(450), Stock: 10,
	}, &ImageUpload{Filename: "sofa.jpg", Body: bytes.NewReader([]byte("img"))})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/products/sofa.jpg", p.Image)
	assert.Equal(t, "https://cdn.example.com/products/thumb_sofa.jpg", p.Thumbnail)
	require.Len(t, env.notifier.created, 1)
	assert.Empty(t, env.notifier.lowStock)

	_, err = env.svc.CreateProduct(ctx, model.Product{Name: "Stool", Stock: 2}, nil)
	require.NoError(t, err)
	assert.Len(t, env.notifier.created, 2)
	assert.Len(t, env.notifier.lowStock, 1)
}

func TestCreateProduct_ImageErrors(t *testing.T) {
	ctx := context.Background()
	upload := &ImageUpload{Filename: "a.png", Body: bytes.NewReader(nil)}

	env := newTestEnv(t, Options{})
	_, err := env.svc.CreateProduct(ctx, model.Product{Name: "Sofa"}, upload)
	assert.ErrorIs(t, err, ErrImageStorageDisabled)

	env = newTestEnv(t, Options{Images: &stubImages{err: storage.ErrInvalidImage}})
	_, err = env.svc.CreateProduct(ctx, model.Product{Name: "Sofa"}, upload)
	assert.ErrorIs(t, err, storage.ErrInvalidImage)

	products, err := env.svc.ListProducts(ctx)
	require.NoError(t, err)
	assert.Empty(t, products)
	assert.Empty(t, env.notifier.created)
}

func TestUpdateProduct(t *testing.T) {
	env := newTestEnv(t, Options{Images: &stubImages{}, LowStockThreshold: 5})
	ctx := context.Background()
	p := env.product(t, "Sofa", "450", 20)

	name := "Corner sofa"
	updated, err := env.svc.UpdateProduct(ctx, p.ID, model.ProductPatch{Name: &name}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Corner sofa", updated.Name)
	assert.Equal(t, 20, updated.Stock)
	assert.Empty(t, env.notifier.lowStock)

	stock := 4
	updated, err = env.svc.UpdateProduct(ctx, p.ID, model.ProductPatch{Stock: &stock},
		&ImageUpload{Filename: "new.png", Body: bytes.NewReader(nil)})
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Stock)
	assert.Equal(t, "https://cdn.example.com/products/new.png", updated.Image)
	assert.Len(t, env.notifier.lowStock, 1)

	empty := " "
	_, err = env.svc.UpdateProduct(ctx, p.ID, model.ProductPatch{Name: &empty}, nil)
	assert.ErrorIs(t, err, ErrMissingFields)

	_, err = env.svc.UpdateProduct(ctx, 999, model.ProductPatch{Stock: &stock}, nil)
	assert.ErrorIs(t, err, repository.ErrProductNotFound)
}

func TestDeleteProduct(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	p := env.product(t, "Sofa", "450", 20)

	require.NoError(t, env.svc.DeleteProduct(ctx, p.ID))
	assert.ErrorIs(t, env.svc.DeleteProduct(ctx, p.ID), repository.ErrProductNotFound)
}

func TestUpdateOrderStatus(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	p := env.product(t, "Sofa", "450", 20)
	_, err := env.svc.AddItem(ctx, 1, p.ID, 1)
	require.NoError(t, err)
	res, err := env.svc.Checkout(ctx, 1)
	require.NoError(t, err)

	_, err = env.svc.UpdateOrderStatus(ctx, res.OrderID, "lost")
	assert.ErrorIs(t, err, ErrUnknownStatus)

	_, err = env.svc.UpdateOrderStatus(ctx, 999, "shipped")
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)

	_, err = env.svc.UpdateOrderStatus(ctx, res.OrderID, "delivered")
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	o, err := env.svc.UpdateOrderStatus(ctx, res.OrderID, "shipped")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusShipped, o.Status)

	o, err = env.svc.UpdateOrderStatus(ctx, res.OrderID, "shipped")
	require.NoError(t, err, "repeating the current status is allowed")
	assert.Equal(t, model.OrderStatusShipped, o.Status)

	o, err = env.svc.UpdateOrderStatus(ctx, res.OrderID, "delivered")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusDelivered, o.Status)

	_, err = env.svc.UpdateOrderStatus(ctx, res.OrderID, "cancelled")
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	all, err := env.svc.ListOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestAdminNotifications(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()

	assert.ErrorIs(t, env.svc.RegisterAdminToken(ctx, 1, "  "), ErrMissingFields)
	require.NoError(t, env.svc.RegisterAdminToken(ctx, 1, "device-1"))
	require.NoError(t, env.svc.RegisterAdminToken(ctx, 1, "device-2"))

	assert.ErrorIs(t, env.svc.SendNotification(ctx, 2, "Hi", "there"), repository.ErrAdminTokenNotFound)
	assert.ErrorIs(t, env.svc.SendNotification(ctx, 1, "", "there"), ErrMissingFields)

	require.NoError(t, env.svc.SendNotification(ctx, 1, "Hi", "there"))
	assert.Equal(t, []string{"device-2:Hi"}, env.notifier.pushes)

	env.notifier.pushErr = errors.New("fcm unavailable")
	assert.ErrorIs(t, env.svc.SendNotification(ctx, 1, "Hi", "there"), ErrPushFailed)
}
