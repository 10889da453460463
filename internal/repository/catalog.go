package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"cybermarket/internal/model"
)

const productColumns = `id, name, price, stock, description, merchant_id`

func scanProduct(row interface{ Scan(...any) error }) (*model.Product, error) {
	var p model.Product
	if err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.Description, &p.MerchantID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan product: %w", err)
	}
	return &p, nil
}

// CreateProduct inserts a product and sets its ID.
func (s *SQLStore) CreateProduct(ctx context.Context, p *model.Product) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		id, err := s.insert(ctx, tx,
			`INSERT INTO product (name, price, stock, description, merchant_id) VALUES (?, ?, ?, ?, ?)`,
			p.Name, p.Price, p.Stock, p.Description, p.MerchantID)
		if err != nil {
			return fmt.Errorf("failed to insert product: %w", err)
		}
		p.ID = id
		return nil
	})
}

// GetProduct finds a product by id.
func (s *SQLStore) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	row := s.db.QueryRowContext(ctx,
		s.d.rebind(`SELECT `+productColumns+` FROM product WHERE id = ?`), id)
	return scanProduct(row)
}

// ListProducts returns a store's products ordered by id.
func (s *SQLStore) ListProducts(ctx context.Context, merchantID int64) ([]model.Product, error) {
	rows, err := s.db.QueryContext(ctx,
		s.d.rebind(`SELECT `+productColumns+` FROM product WHERE merchant_id = ? ORDER BY id`), merchantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// UpdateProduct persists name, price and description.
func (s *SQLStore) UpdateProduct(ctx context.Context, p *model.Product) error {
	res, err := s.db.ExecContext(ctx,
		s.d.rebind(`UPDATE product SET name = ?, price = ?, description = ? WHERE id = ?`),
		p.Name, p.Price, p.Description, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	return requireAffected(res)
}

// DeleteProduct removes the product together with the cart lines that
// reference it.
func (s *SQLStore) DeleteProduct(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			s.d.rebind(`DELETE FROM cart_line WHERE product_id = ?`), id); err != nil {
			return fmt.Errorf("failed to delete cart lines: %w", err)
		}

		res, err := tx.ExecContext(ctx, s.d.rebind(`DELETE FROM product WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("failed to delete product: %w", err)
		}
		return requireAffected(res)
	})
}

// RestockProduct adds quantity to the stock and returns the updated product.
// Returns ErrQuantityOverflow if the new stock does not fit in an int64.
func (s *SQLStore) RestockProduct(ctx context.Context, id int64, quantity int64) (*model.Product, error) {
	var p *model.Product
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var stock int64
		err := tx.QueryRowContext(ctx,
			s.d.rebind(`SELECT stock FROM product WHERE id = ?`+s.d.forUpdate), id).Scan(&stock)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load stock: %w", err)
		}
		if quantity > 0 && stock > math.MaxInt64-quantity {
			return ErrQuantityOverflow
		}

		if _, err := tx.ExecContext(ctx,
			s.d.rebind(`UPDATE product SET stock = stock + ? WHERE id = ?`), quantity, id); err != nil {
			return fmt.Errorf("failed to restock product: %w", err)
		}

		p, err = scanProduct(tx.QueryRowContext(ctx,
			s.d.rebind(`SELECT `+productColumns+` FROM product WHERE id = ?`), id))
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}
