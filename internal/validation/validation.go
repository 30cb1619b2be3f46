// Package validation содержит функции валидации входных данных.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/mail"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/comfyshop/internal/model"
)

const (
	// MaxStock ограничивает остаток товара и варианта: столбцы остатков имеют тип INTEGER.
	MaxStock = math.MaxInt32
	// MaxQuantity ограничивает количество товара в строке корзины и заказа.
	MaxQuantity = math.MaxInt32
)

// maxPrice соответствует наибольшему числу копеек, которое помещается в BIGINT.
var maxPrice = decimal.New(math.MaxInt64, -2)

var (
	// ErrInvalidPrice возвращается, если цена не является неотрицательным числом.
	ErrInvalidPrice = errors.New("price must be a non-negative number")
	// ErrInvalidStock возвращается, если остаток не является неотрицательным целым числом.
	ErrInvalidStock = errors.New("stock must be a non-negative integer")
	// ErrInvalidVariants возвращается, если варианты не являются JSON-массивом.
	ErrInvalidVariants = errors.New("variants must be a JSON array")
)

// ParsePrice разбирает цену товара. Допускается не более двух знаков после запятой.
func ParsePrice(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, ErrInvalidPrice
	}
	if d.IsNegative() || !d.Equal(d.Round(2)) || d.GreaterThan(maxPrice) {
		return decimal.Zero, ErrInvalidPrice
	}
	return d, nil
}

// ParseStock разбирает остаток товара.
func ParseStock(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 || n > MaxStock {
		return 0, ErrInvalidStock
	}
	return n, nil
}

// ParseVariants разбирает JSON-массив вариантов товара. Пустая строка означает отсутствие вариантов.
func ParseVariants(s string) ([]model.Variant, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return []model.Variant{}, nil
	}

	var variants []model.Variant
	if err := json.Unmarshal([]byte(s), &variants); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVariants, err)
	}
	if variants == nil {
		return nil, ErrInvalidVariants
	}

	for i, v := range variants {
		if v.Stock < 0 || v.Stock > MaxStock {
			return nil, fmt.Errorf("%w: variant %d has stock out of range", ErrInvalidVariants, i)
		}
	}
	return variants, nil
}

// NormalizeEmail приводит email к каноническому виду для поиска и хранения.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsValidEmail проверяет, что строка является одиночным email-адресом без отображаемого имени.
func IsValidEmail(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email && addr.Name == ""
}
