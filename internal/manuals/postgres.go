package manuals

import (
	"context"
	"fmt"

	"github.com/hongyu-crm/crm-backend/internal/crm/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the table and loads seed when it is empty.
func (r *PostgresRepository) EnsureSchema(ctx context.Context, seed []domain.ManualSection) error {
	const ddl = `
create table if not exists crm_manual_sections (
  id         text primary key,
  platform   text not null,
  type       text not null,
  title      text not null,
  content    text not null,
  updated_at timestamptz not null default now()
);
`
	if _, err := r.db.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create manuals table: %w", err)
	}

	var n int
	if err := r.db.QueryRow(ctx, `select count(*) from crm_manual_sections`).Scan(&n); err != nil {
		return fmt.Errorf("count manuals: %w", err)
	}
	if n > 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, s := range seed {
		batch.Queue(upsertSQL, s.ID, string(s.Platform), string(s.Type), s.Title, s.Content)
	}
	if err := r.db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("seed manuals: %w", err)
	}
	return nil
}

const upsertSQL = `
insert into crm_manual_sections (id, platform, type, title, content, updated_at)
values ($1, $2, $3, $4, $5, now())
on conflict (id) do update
set
  platform = excluded.platform,
  type = excluded.type,
  title = excluded.title,
  content = excluded.content,
  updated_at = now();
`

func (r *PostgresRepository) ListByPlatform(ctx context.Context, platform domain.Platform) ([]domain.ManualSection, error) {
	const q = `
select id, platform, type, title, content
from crm_manual_sections
where platform = $1
order by id;
`
	rows, err := r.db.Query(ctx, q, string(platform))
	if err != nil {
		return nil, fmt.Errorf("list manuals: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ManualSection, 0)
	for rows.Next() {
		var s domain.ManualSection
		var p, t string
		if err := rows.Scan(&s.ID, &p, &t, &s.Title, &s.Content); err != nil {
			return nil, err
		}
		s.Platform = domain.Platform(p)
		s.Type = domain.SectionType(t)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Upsert(ctx context.Context, s domain.ManualSection) error {
	if _, err := r.db.Exec(ctx, upsertSQL, s.ID, string(s.Platform), string(s.Type), s.Title, s.Content); err != nil {
		return fmt.Errorf("upsert manual: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `delete from crm_manual_sections where id = $1`, id); err != nil {
		return fmt.Errorf("delete manual: %w", err)
	}
	return nil
}
