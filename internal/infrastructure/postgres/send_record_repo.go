package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nbeast/nbeast/internal/domain"
)

type SendRecordRepository struct {
	pool *pgxpool.Pool
}

func NewSendRecordRepository(pool *pgxpool.Pool) *SendRecordRepository {
	return &SendRecordRepository{pool: pool}
}

func (r *SendRecordRepository) FindMostRecent(ctx context.Context, normalizedEmail string) (*domain.SendRecord, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, email, created_at FROM send_records
		 WHERE email = $1
		 ORDER BY created_at DESC
		 LIMIT 1`,
		normalizedEmail,
	)

	var rec domain.SendRecord
	err := row.Scan(&rec.ID, &rec.Email, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find send record: %w", err)
	}
	return &rec, nil
}

func (r *SendRecordRepository) Create(ctx context.Context, normalizedEmail string, createdAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO send_records (id, email, created_at) VALUES ($1, $2, $3)`,
		uuid.NewString(), normalizedEmail, createdAt,
	)
	if err != nil {
		return fmt.Errorf("create send record: %w", err)
	}
	return nil
}

func (r *SendRecordRepository) PurgeOlderThan(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM send_records WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("purge send records: %w", err)
	}
	return tag.RowsAffected(), nil
}
