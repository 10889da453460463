package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"cybermarket/internal/model"
)

// AddCartLine increments the client's line for the product or creates it.
// Returns ErrQuantityOverflow if the new quantity does not fit in an int64.
func (s *SQLStore) AddCartLine(ctx context.Context, clientID, productID, quantity int64) (*model.CartLine, error) {
	line := &model.CartLine{ClientID: clientID, ProductID: productID}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			s.d.rebind(`SELECT id, quantity FROM cart_line WHERE client_id = ? AND product_id = ?`+s.d.forUpdate),
			clientID, productID).Scan(&line.ID, &line.Quantity)

		switch {
		case errors.Is(err, sql.ErrNoRows):
			id, err := s.insert(ctx, tx,
				`INSERT INTO cart_line (client_id, product_id, quantity) VALUES (?, ?, ?)`,
				clientID, productID, quantity)
			if err != nil {
				return s.mapWriteError(err, "insert cart line")
			}
			line.ID = id
			line.Quantity = quantity
			return nil
		case err != nil:
			return fmt.Errorf("failed to load cart line: %w", err)
		}

		if line.Quantity > math.MaxInt64-quantity {
			return ErrQuantityOverflow
		}
		line.Quantity += quantity
		if _, err := tx.ExecContext(ctx,
			s.d.rebind(`UPDATE cart_line SET quantity = ? WHERE id = ?`), line.Quantity, line.ID); err != nil {
			return fmt.Errorf("failed to update cart line: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

// RemoveCartLine deletes the client's line for the product.
func (s *SQLStore) RemoveCartLine(ctx context.Context, clientID, productID int64) error {
	res, err := s.db.ExecContext(ctx,
		s.d.rebind(`DELETE FROM cart_line WHERE client_id = ? AND product_id = ?`), clientID, productID)
	if err != nil {
		return fmt.Errorf("failed to remove cart line: %w", err)
	}
	return requireAffected(res)
}

// ListCartItems returns the client's cart joined with product and store.
func (s *SQLStore) ListCartItems(ctx context.Context, clientID int64) ([]model.CartItem, error) {
	rows, err := s.db.QueryContext(ctx, s.d.rebind(`
		SELECT c.id, p.id, p.name, m.storename, p.price, c.quantity
		FROM cart_line c
		JOIN product p ON p.id = c.product_id
		JOIN merchant m ON m.id = p.merchant_id
		WHERE c.client_id = ?
		ORDER BY c.id`), clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart: %w", err)
	}
	defer rows.Close()

	items := []model.CartItem{}
	for rows.Next() {
		var it model.CartItem
		if err := rows.Scan(&it.LineID, &it.ProductID, &it.ProductName, &it.Storename, &it.Price, &it.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// SettleCartLine pays for a single line. A line can only be settled while
// the product has strictly more stock than requested.
func (s *SQLStore) SettleCartLine(ctx context.Context, lineID int64) (*model.Settlement, error) {
	var settled *model.Settlement

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var (
			it         model.CartItem
			stock      int64
			merchantID int64
		)
		err := tx.QueryRowContext(ctx, s.d.rebind(`
			SELECT c.id, p.id, p.name, m.storename, p.price, c.quantity, p.stock, m.id
			FROM cart_line c
			JOIN product p ON p.id = c.product_id
			JOIN merchant m ON m.id = p.merchant_id
			WHERE c.id = ?`+s.d.forUpdate), lineID).
			Scan(&it.LineID, &it.ProductID, &it.ProductName, &it.Storename, &it.Price, &it.Quantity, &stock, &merchantID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load cart line: %w", err)
		}

		if it.Quantity >= stock {
			return &ShortageError{Shortage: model.Shortage{
				LineID:      it.LineID,
				ProductID:   it.ProductID,
				ProductName: it.ProductName,
				Storename:   it.Storename,
				Requested:   it.Quantity,
				Available:   stock,
			}}
		}

		if _, err := tx.ExecContext(ctx,
			s.d.rebind(`UPDATE product SET stock = stock - ? WHERE id = ?`), it.Quantity, it.ProductID); err != nil {
			return fmt.Errorf("failed to decrement stock: %w", err)
		}

		var profit decimal.Decimal
		if err := tx.QueryRowContext(ctx,
			s.d.rebind(`SELECT profit FROM merchant WHERE id = ?`+s.d.forUpdate), merchantID).Scan(&profit); err != nil {
			return fmt.Errorf("failed to load merchant profit: %w", err)
		}

		amount := it.Total()
		if _, err := tx.ExecContext(ctx,
			s.d.rebind(`UPDATE merchant SET profit = ? WHERE id = ?`), profit.Add(amount), merchantID); err != nil {
			return fmt.Errorf("failed to credit merchant: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			s.d.rebind(`DELETE FROM cart_line WHERE id = ?`), it.LineID); err != nil {
			return fmt.Errorf("failed to delete cart line: %w", err)
		}

		settled = &model.Settlement{
			LineID:      it.LineID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Storename:   it.Storename,
			Quantity:    it.Quantity,
			Amount:      amount,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return settled, nil
}
