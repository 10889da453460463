package repository

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// dialect captures the differences between the SQL backends. Queries are
// written with ? placeholders and rebound per dialect.
type dialect struct {
	name          string
	schema        []string
	dollarParams  bool
	returningID   bool
	forUpdate     string
	uniqueViolate func(err error) bool
}

// rebind rewrites ? placeholders into $1, $2, ... when the dialect needs it.
func (d dialect) rebind(query string) string {
	if !d.dollarParams {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

var sqliteDialect = dialect{
	name: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS client (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS merchant (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			storename TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			profit TEXT NOT NULL DEFAULT '0'
		)`,
		`CREATE TABLE IF NOT EXISTS product (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			price TEXT NOT NULL,
			stock INTEGER NOT NULL DEFAULT 0,
			description TEXT NOT NULL DEFAULT '',
			merchant_id INTEGER NOT NULL REFERENCES merchant(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_product_merchant ON product(merchant_id)`,
		`CREATE TABLE IF NOT EXISTS cart_line (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			client_id INTEGER NOT NULL REFERENCES client(id),
			product_id INTEGER NOT NULL REFERENCES product(id),
			quantity INTEGER NOT NULL,
			UNIQUE (client_id, product_id)
		)`,
		`CREATE TABLE IF NOT EXISTS invitation (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			issuer TEXT NOT NULL,
			code TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_invitation_issuer_code ON invitation(issuer, code)`,
	},
	uniqueViolate: func(err error) bool {
		return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
	},
}

var mysqlDialect = dialect{
	name: "mysql",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS client (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			username VARCHAR(191) NOT NULL UNIQUE,
			email VARCHAR(191) NOT NULL UNIQUE,
			password VARCHAR(255) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS merchant (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			storename VARCHAR(191) NOT NULL UNIQUE,
			description VARCHAR(1024) NOT NULL DEFAULT '',
			email VARCHAR(191) NOT NULL UNIQUE,
			password VARCHAR(255) NOT NULL,
			profit DECIMAL(18,2) NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS product (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			price DECIMAL(18,2) NOT NULL,
			stock BIGINT NOT NULL DEFAULT 0,
			description VARCHAR(1024) NOT NULL DEFAULT '',
			merchant_id BIGINT NOT NULL,
			INDEX idx_product_merchant (merchant_id)
		)`,
		`CREATE TABLE IF NOT EXISTS cart_line (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			client_id BIGINT NOT NULL,
			product_id BIGINT NOT NULL,
			quantity BIGINT NOT NULL,
			UNIQUE KEY uq_cart_client_product (client_id, product_id)
		)`,
		`CREATE TABLE IF NOT EXISTS invitation (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			issuer VARCHAR(191) NOT NULL,
			code VARCHAR(64) NOT NULL,
			created_at DATETIME NOT NULL,
			INDEX idx_invitation_issuer_code (issuer, code)
		)`,
	},
	forUpdate: " FOR UPDATE",
	uniqueViolate: func(err error) bool {
		var myErr *mysql.MySQLError
		return errors.As(err, &myErr) && myErr.Number == 1062
	},
}

var postgresDialect = dialect{
	name: "postgres",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS client (
			id BIGSERIAL PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS merchant (
			id BIGSERIAL PRIMARY KEY,
			storename TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			profit NUMERIC(18,2) NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS product (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			price NUMERIC(18,2) NOT NULL,
			stock BIGINT NOT NULL DEFAULT 0,
			description TEXT NOT NULL DEFAULT '',
			merchant_id BIGINT NOT NULL REFERENCES merchant(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_product_merchant ON product(merchant_id)`,
		`CREATE TABLE IF NOT EXISTS cart_line (
			id BIGSERIAL PRIMARY KEY,
			client_id BIGINT NOT NULL REFERENCES client(id),
			product_id BIGINT NOT NULL REFERENCES product(id),
			quantity BIGINT NOT NULL,
			UNIQUE (client_id, product_id)
		)`,
		`CREATE TABLE IF NOT EXISTS invitation (
			id BIGSERIAL PRIMARY KEY,
			issuer TEXT NOT NULL,
			code TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_invitation_issuer_code ON invitation(issuer, code)`,
	},
	dollarParams: true,
	returningID:  true,
	forUpdate:    " FOR UPDATE",
	uniqueViolate: func(err error) bool {
		var pqErr *pq.Error
		return errors.As(err, &pqErr) && pqErr.Code == "23505"
	},
}
