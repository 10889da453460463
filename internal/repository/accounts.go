package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cybermarket/internal/model"
)

const clientColumns = `id, username, email, password`

func scanClient(row interface{ Scan(...any) error }) (*model.Client, error) {
	var c model.Client
	if err := row.Scan(&c.ID, &c.Username, &c.Email, &c.Password); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan client: %w", err)
	}
	return &c, nil
}

// CreateClient inserts a client after checking that username and email are free.
func (s *SQLStore) CreateClient(ctx context.Context, c *model.Client) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		taken, err := s.exists(ctx, tx,
			`SELECT 1 FROM client WHERE username = ? OR email = ?`, c.Username, c.Email)
		if err != nil {
			return fmt.Errorf("failed to check client uniqueness: %w", err)
		}
		if taken {
			return ErrConflict
		}

		id, err := s.insert(ctx, tx,
			`INSERT INTO client (username, email, password) VALUES (?, ?, ?)`,
			c.Username, c.Email, c.Password)
		if err != nil {
			return s.mapWriteError(err, "insert client")
		}
		c.ID = id
		return nil
	})
}

// GetClient finds a client by id.
func (s *SQLStore) GetClient(ctx context.Context, id int64) (*model.Client, error) {
	row := s.db.QueryRowContext(ctx,
		s.d.rebind(`SELECT `+clientColumns+` FROM client WHERE id = ?`), id)
	return scanClient(row)
}

// FindClient finds a client by username or email.
func (s *SQLStore) FindClient(ctx context.Context, handle string) (*model.Client, error) {
	row := s.db.QueryRowContext(ctx,
		s.d.rebind(`SELECT `+clientColumns+` FROM client WHERE username = ? OR email = ? ORDER BY id LIMIT 1`),
		handle, handle)
	return scanClient(row)
}

// UpdateClient persists the mutable client fields.
func (s *SQLStore) UpdateClient(ctx context.Context, c *model.Client) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		taken, err := s.exists(ctx, tx,
			`SELECT 1 FROM client WHERE (username = ? OR email = ?) AND id <> ?`,
			c.Username, c.Email, c.ID)
		if err != nil {
			return fmt.Errorf("failed to check client uniqueness: %w", err)
		}
		if taken {
			return ErrConflict
		}

		res, err := tx.ExecContext(ctx,
			s.d.rebind(`UPDATE client SET username = ?, email = ?, password = ? WHERE id = ?`),
			c.Username, c.Email, c.Password, c.ID)
		if err != nil {
			return s.mapWriteError(err, "update client")
		}
		return requireAffected(res)
	})
}

const merchantColumns = `id, storename, description, email, password, profit`

func scanMerchant(row interface{ Scan(...any) error }) (*model.Merchant, error) {
	var m model.Merchant
	if err := row.Scan(&m.ID, &m.Storename, &m.Description, &m.Email, &m.Password, &m.Profit); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan merchant: %w", err)
	}
	return &m, nil
}

// CreateMerchant inserts a merchant and consumes the invitation claim. The
// uniqueness check runs first so that a conflicting registration does not
// burn the code.
func (s *SQLStore) CreateMerchant(ctx context.Context, m *model.Merchant, claim *model.Invitation) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		taken, err := s.exists(ctx, tx,
			`SELECT 1 FROM merchant WHERE storename = ? OR email = ?`, m.Storename, m.Email)
		if err != nil {
			return fmt.Errorf("failed to check merchant uniqueness: %w", err)
		}
		if taken {
			return ErrConflict
		}

		if claim != nil {
			consumed, err := s.consumeInvitation(ctx, tx, claim.Issuer, claim.Code)
			if err != nil {
				return err
			}
			if !consumed {
				return ErrInvitationRejected
			}
		}

		id, err := s.insert(ctx, tx,
			`INSERT INTO merchant (storename, description, email, password, profit) VALUES (?, ?, ?, ?, ?)`,
			m.Storename, m.Description, m.Email, m.Password, m.Profit)
		if err != nil {
			return s.mapWriteError(err, "insert merchant")
		}
		m.ID = id
		return nil
	})
}

// GetMerchant finds a merchant by id.
func (s *SQLStore) GetMerchant(ctx context.Context, id int64) (*model.Merchant, error) {
	row := s.db.QueryRowContext(ctx,
		s.d.rebind(`SELECT `+merchantColumns+` FROM merchant WHERE id = ?`), id)
	return scanMerchant(row)
}

// FindMerchant finds a merchant by storename or email.
func (s *SQLStore) FindMerchant(ctx context.Context, handle string) (*model.Merchant, error) {
	row := s.db.QueryRowContext(ctx,
		s.d.rebind(`SELECT `+merchantColumns+` FROM merchant WHERE storename = ? OR email = ? ORDER BY id LIMIT 1`),
		handle, handle)
	return scanMerchant(row)
}

// GetMerchantByStorename finds a merchant by storename only.
func (s *SQLStore) GetMerchantByStorename(ctx context.Context, storename string) (*model.Merchant, error) {
	row := s.db.QueryRowContext(ctx,
		s.d.rebind(`SELECT `+merchantColumns+` FROM merchant WHERE storename = ?`), storename)
	return scanMerchant(row)
}

// ListMerchants returns every merchant ordered by id.
func (s *SQLStore) ListMerchants(ctx context.Context) ([]model.Merchant, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+merchantColumns+` FROM merchant ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list merchants: %w", err)
	}
	defer rows.Close()

	merchants := []model.Merchant{}
	for rows.Next() {
		m, err := scanMerchant(rows)
		if err != nil {
			return nil, err
		}
		merchants = append(merchants, *m)
	}
	return merchants, rows.Err()
}

// UpdateMerchant persists the mutable merchant fields. Profit is only ever
// changed by SettleCartLine.
func (s *SQLStore) UpdateMerchant(ctx context.Context, m *model.Merchant) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		taken, err := s.exists(ctx, tx,
			`SELECT 1 FROM merchant WHERE (storename = ? OR email = ?) AND id <> ?`,
			m.Storename, m.Email, m.ID)
		if err != nil {
			return fmt.Errorf("failed to check merchant uniqueness: %w", err)
		}
		if taken {
			return ErrConflict
		}

		var previous string
		err = tx.QueryRowContext(ctx,
			s.d.rebind(`SELECT storename FROM merchant WHERE id = ?`+s.d.forUpdate), m.ID).Scan(&previous)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load merchant: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			s.d.rebind(`UPDATE merchant SET storename = ?, description = ?, email = ?, password = ? WHERE id = ?`),
			m.Storename, m.Description, m.Email, m.Password, m.ID)
		if err != nil {
			return s.mapWriteError(err, "update merchant")
		}

		if previous != m.Storename {
			_, err = tx.ExecContext(ctx,
				s.d.rebind(`UPDATE invitation SET issuer = ? WHERE issuer = ?`), m.Storename, previous)
			if err != nil {
				return fmt.Errorf("failed to move invitations: %w", err)
			}
		}
		return nil
	})
}

// CreateInvitation stores a new invitation code.
func (s *SQLStore) CreateInvitation(ctx context.Context, inv *model.Invitation) error {
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		id, err := s.insert(ctx, tx,
			`INSERT INTO invitation (issuer, code, created_at) VALUES (?, ?, ?)`,
			inv.Issuer, inv.Code, inv.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert invitation: %w", err)
		}
		inv.ID = id
		return nil
	})
}

// ConsumeInvitation deletes one matching code.
func (s *SQLStore) ConsumeInvitation(ctx context.Context, issuer, code string) (bool, error) {
	var consumed bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		consumed, err = s.consumeInvitation(ctx, tx, issuer, code)
		return err
	})
	return consumed, err
}

func (s *SQLStore) consumeInvitation(ctx context.Context, tx *sql.Tx, issuer, code string) (bool, error) {
	var id int64
	err := tx.QueryRowContext(ctx,
		s.d.rebind(`SELECT id FROM invitation WHERE issuer = ? AND code = ? ORDER BY id LIMIT 1`+s.d.forUpdate),
		issuer, code).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up invitation: %w", err)
	}

	if _, err := tx.ExecContext(ctx, s.d.rebind(`DELETE FROM invitation WHERE id = ?`), id); err != nil {
		return false, fmt.Errorf("failed to consume invitation: %w", err)
	}
	return true, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
