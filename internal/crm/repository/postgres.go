package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hongyu-crm/crm-backend/config"
	"github.com/hongyu-crm/crm-backend/internal/crm/domain"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS crm_users (
	seq           BIGSERIAL,
	id            TEXT PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL,
	can_view_all  BOOLEAN NOT NULL DEFAULT FALSE,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS crm_customers (
	seq               BIGSERIAL,
	id                TEXT PRIMARY KEY,
	creator_id        TEXT NOT NULL,
	name              TEXT NOT NULL,
	contact_info      TEXT NOT NULL DEFAULT '',
	platform          TEXT NOT NULL,
	deal_date         TIMESTAMPTZ,
	expiry_date       TIMESTAMPTZ,
	last_tracked_date TIMESTAMPTZ NOT NULL,
	images            JSONB NOT NULL DEFAULT '[]',
	copywritings      JSONB NOT NULL DEFAULT '[]',
	notes             TEXT NOT NULL DEFAULT ''
);
`

// NewPostgresConnection opens and pings a lib/pq pool.
func NewPostgresConnection(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}

// PostgresStore keeps users and customers in two tables. Assets are JSONB.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const userColumns = `id, username, password_hash, role, can_view_all, created_at`

func (s *PostgresStore) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM crm_users ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *PostgresStore) GetUser(ctx context.Context, id string) (domain.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM crm_users WHERE id = $1`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return domain.User{}, domain.ErrNotFound
	}
	return u, err
}

func (s *PostgresStore) InsertUser(ctx context.Context, u domain.User) error {
	query := `
		INSERT INTO crm_users (id, username, password_hash, role, can_view_all, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query, u.ID, u.Username, u.PasswordHash, string(u.Role), u.CanViewAll, u.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && pqErr.Constraint == "crm_users_username_key" {
			return domain.ErrDuplicateUsername
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteUser(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM crm_users WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateUser(ctx context.Context, id string, patch domain.UserPatch) (domain.User, error) {
	query := `
		UPDATE crm_users
		SET can_view_all = COALESCE($2::boolean, can_view_all)
		WHERE id = $1
		RETURNING ` + userColumns

	var canViewAll sql.NullBool
	if patch.CanViewAll != nil {
		canViewAll = sql.NullBool{Bool: *patch.CanViewAll, Valid: true}
	}

	u, err := scanUser(s.db.QueryRowContext(ctx, query, id, canViewAll))
	if err == sql.ErrNoRows {
		return domain.User{}, domain.ErrNotFound
	}
	return u, err
}

const customerColumns = `id, creator_id, name, contact_info, platform, deal_date, expiry_date,
	last_tracked_date, images, copywritings, notes`

func (s *PostgresStore) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+customerColumns+` FROM crm_customers ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (s *PostgresStore) GetCustomer(ctx context.Context, id string) (domain.Customer, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+customerColumns+` FROM crm_customers WHERE id = $1`, id)
	c, err := scanCustomer(row)
	if err == sql.ErrNoRows {
		return domain.Customer{}, domain.ErrNotFound
	}
	return c, err
}

func (s *PostgresStore) UpsertCustomer(ctx context.Context, c domain.Customer) error {
	query := `
		INSERT INTO crm_customers (id, creator_id, name, contact_info, platform, deal_date, expiry_date,
			last_tracked_date, images, copywritings, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE
		SET creator_id = EXCLUDED.creator_id,
		    name = EXCLUDED.name,
		    contact_info = EXCLUDED.contact_info,
		    platform = EXCLUDED.platform,
		    deal_date = EXCLUDED.deal_date,
		    expiry_date = EXCLUDED.expiry_date,
		    last_tracked_date = EXCLUDED.last_tracked_date,
		    images = EXCLUDED.images,
		    copywritings = EXCLUDED.copywritings,
		    notes = EXCLUDED.notes
	`

	c = c.Clone()
	imagesJSON, err := json.Marshal(c.Images)
	if err != nil {
		return fmt.Errorf("failed to marshal images: %w", err)
	}
	copyJSON, err := json.Marshal(c.Copywritings)
	if err != nil {
		return fmt.Errorf("failed to marshal copywritings: %w", err)
	}

	_, err = s.db.ExecContext(ctx, query,
		c.ID,
		c.CreatorID,
		c.Name,
		c.ContactInfo,
		string(c.Platform),
		nullTime(c.DealDate),
		nullTime(c.ExpiryDate),
		c.LastTrackedDate,
		imagesJSON,
		copyJSON,
		c.Notes,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert customer: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteCustomer(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM crm_customers WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (domain.User, error) {
	var u domain.User
	var role string
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &role, &u.CanViewAll, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return domain.User{}, err
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to scan user: %w", err)
	}
	u.Role = domain.Role(role)
	return u, nil
}

func scanCustomer(row scanner) (domain.Customer, error) {
	var c domain.Customer
	var platform string
	var dealDate, expiryDate sql.NullTime
	var imagesJSON, copyJSON []byte

	err := row.Scan(
		&c.ID,
		&c.CreatorID,
		&c.Name,
		&c.ContactInfo,
		&platform,
		&dealDate,
		&expiryDate,
		&c.LastTrackedDate,
		&imagesJSON,
		&copyJSON,
		&c.Notes,
	)
	if err == sql.ErrNoRows {
		return domain.Customer{}, err
	}
	if err != nil {
		return domain.Customer{}, fmt.Errorf("failed to scan customer: %w", err)
	}

	c.Platform = domain.Platform(platform)
	if dealDate.Valid {
		t := dealDate.Time
		c.DealDate = &t
	}
	if expiryDate.Valid {
		t := expiryDate.Time
		c.ExpiryDate = &t
	}
	if len(imagesJSON) > 0 {
		if err := json.Unmarshal(imagesJSON, &c.Images); err != nil {
			return domain.Customer{}, fmt.Errorf("failed to unmarshal images: %w", err)
		}
	}
	if len(copyJSON) > 0 {
		if err := json.Unmarshal(copyJSON, &c.Copywritings); err != nil {
			return domain.Customer{}, fmt.Errorf("failed to unmarshal copywritings: %w", err)
		}
	}
	return c.Clone(), nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
