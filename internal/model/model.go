// Package model содержит доменные сущности интернет-магазина.
package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Role описывает роль пользователя. Допустимы только RoleUser и RoleAdmin.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole преобразует строку в Role и отклоняет неизвестные значения.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser:
		return RoleUser, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// IsAdmin сообщает, обладает ли роль правами администратора.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// User представляет зарегистрированного пользователя магазина.
// PasswordHash пуст у аккаунтов, созданных только через Google.
type User struct {
	ID              int64
	Name            string
	Email           string
	PasswordHash    []byte
	Role            Role
	ResetCodeHash   []byte
	ResetCodeExpiry *time.Time
	CreatedAt       time.Time
}

// Profile содержит публичное представление пользователя.
type Profile struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Profile возвращает публичное представление пользователя.
func (u *User) Profile() Profile {
	return Profile{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// Identity описывает аутентифицированную личность, извлечённую из токена.
type Identity struct {
	UserID int64
	Role   Role
}

// Variant описывает вариант товара (размер, цвет) и его остаток.
type Variant struct {
	Size  string `json:"size"`
	Color string `json:"color"`
	Stock int    `json:"stock"`
}

// Product описывает товар каталога.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Variants    []Variant       `json:"variants"`
	Image       string          `json:"image,omitempty"`
	Thumbnail   string          `json:"thumbnail,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// ProductPatch содержит частичное обновление товара; nil-поля не изменяются.
type ProductPatch struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Stock       *int
	Variants    *[]Variant
	Image       *string
	Thumbnail   *string
}

// CartItem описывает строку корзины со снимком названия, цены и изображения на момент добавления.
type CartItem struct {
	ProductID int64           `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image,omitempty"`
	Quantity  int             `json:"quantity"`
}

// Subtotal возвращает стоимость строки: цена × количество.
func (i CartItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart описывает корзину пользователя. Пустая корзина является обычным значением, а не ошибкой.
type Cart struct {
	UserID    int64      `json:"userId"`
	Items     []CartItem `json:"items"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// Total возвращает сумму Σ price × quantity по строкам корзины.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// OrderStatus описывает статус выполнения заказа.
type OrderStatus string

const (
	OrderStatusPacking   OrderStatus = "packing"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPacking: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped: {OrderStatusDelivered, OrderStatusCancelled},
}

// ParseOrderStatus преобразует строку в OrderStatus и отклоняет неизвестные значения.
func ParseOrderStatus(s string) (OrderStatus, error) {
	st := OrderStatus(s)
	switch st {
	case OrderStatusPacking, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return st, nil
	default:
		return "", fmt.Errorf("unknown order status %q", s)
	}
}

// CanTransitionTo сообщает, допустим ли переход из текущего статуса в next.
// Повторная установка того же статуса допустима.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Order хранит неизменяемый снимок корзины на момент оформления.
type Order struct {
	ID        int64       `json:"id"`
	UserID    int64       `json:"userId"`
	Items     []CartItem  `json:"items"`
	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// Total возвращает итоговую стоимость заказа.
func (o *Order) Total() decimal.Decimal {
	c := Cart{Items: o.Items}
	return c.Total()
}

// CheckoutResult содержит результат оформления заказа.
type CheckoutResult struct {
	OrderID int64           `json:"orderId"`
	Total   decimal.Decimal `json:"total"`
}

// AdminToken описывает push-токен устройства администратора.
type AdminToken struct {
	UserID    int64
	Token     string
	UpdatedAt time.Time
}
