package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/comfyshop/internal/model"
)

const productColumns = `id, name, description, price_cents, stock, variants, image, thumbnail, created_at, updated_at`

func scanProduct(row pgx.Row) (*model.Product, error) {
	var (
		p          model.Product
		priceCents int64
	)
	err := row.Scan(&p.ID, &p.Name, &p.Description, &priceCents, &p.Stock, &p.Variants,
		&p.Image, &p.Thumbnail, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Price = fromCents(priceCents)
	if p.Variants == nil {
		p.Variants = []model.Variant{}
	}
	return &p, nil
}

// CreateProduct сохраняет новый товар и возвращает его с присвоенным идентификатором.
func (r *PostgresRepository) CreateProduct(ctx context.Context, p *model.Product) (*model.Product, error) {
	variants := p.Variants
	if variants == nil {
		variants = []model.Variant{}
	}

	created, err := scanProduct(r.pool.QueryRow(ctx,
		`INSERT INTO products (name, description, price_cents, stock, variants, image, thumbnail)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+productColumns,
		p.Name, p.Description, toCents(p.Price), p.Stock, variants, p.Image, p.Thumbnail,
	))
	if err != nil {
		return nil, fmt.Errorf("insert product: %w", err)
	}
	return created, nil
}

// GetProduct возвращает товар по идентификатору.
func (r *PostgresRepository) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	var p *model.Product
	err := r.withRetry(ctx, func() error {
		var err error
		p, err = scanProduct(r.pool.QueryRow(ctx,
			`SELECT `+productColumns+` FROM products WHERE id = $1`, id))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// ListProducts возвращает все товары каталога.
func (r *PostgresRepository) ListProducts(ctx context.Context) ([]model.Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	products := []model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return products, nil
}

// UpdateProduct применяет частичное обновление к товару.
func (r *PostgresRepository) UpdateProduct(ctx context.Context, id int64, patch model.ProductPatch) (*model.Product, error) {
	var priceCents *int64
	if patch.Price != nil {
		v := toCents(*patch.Price)
		priceCents = &v
	}
	var variants any
	if patch.Variants != nil {
		variants = *patch.Variants
	}

	p, err := scanProduct(r.pool.QueryRow(ctx,
		`UPDATE products SET
		     name        = COALESCE($2, name),
		     description = COALESCE($3, description),
		     price_cents = COALESCE($4, price_cents),
		     stock       = COALESCE($5, stock),
		     variants    = COALESCE($6::jsonb, variants),
		     image       = COALESCE($7, image),
		     thumbnail   = COALESCE($8, thumbnail),
		     updated_at  = now()
		 WHERE id = $1
		 RETURNING `+productColumns,
		id, patch.Name, patch.Description, priceCents, patch.Stock, variants, patch.Image, patch.Thumbnail,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("update product: %w", err)
	}
	return p, nil
}

// DeleteProduct удаляет товар. Строки корзин и заказов хранят снимок и не затрагиваются.
func (r *PostgresRepository) DeleteProduct(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}
