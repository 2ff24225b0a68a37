package database

import (
	"context"
	"time"

	"github.com/balbi1122/balbi-golf-booking/internal/models"
)

// CreateBlock inserts an admin block unconditionally; existing lessons are
// left alone and later availability queries exclude the zone.
func (db *DB) CreateBlock(ctx context.Context, b *models.Block) (int64, error) {
	res, err := db.ExecContext(ctx,
		`INSERT INTO blocks (start_time, end_time, note) VALUES (?, ?, ?)`,
		b.StartTime.UTC(), b.EndTime.UTC(), b.Note)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// DeleteBlock removes a block by id.
func (db *DB) DeleteBlock(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx, `DELETE FROM blocks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// BlocksOverlapping returns blocks intersecting [start, end).
func (db *DB) BlocksOverlapping(ctx context.Context, start, end time.Time) ([]models.Block, error) {
	return blocksOverlapping(ctx, db.DB, start, end)
}

func blocksOverlapping(ctx context.Context, q dbtx, start, end time.Time) ([]models.Block, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, start_time, end_time, note FROM blocks
		WHERE start_time < ? AND end_time > ?
		ORDER BY start_time`,
		end.UTC(), start.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var blocks []models.Block
	for rows.Next() {
		var b models.Block
		if err := rows.Scan(&b.ID, &b.StartTime, &b.EndTime, &b.Note); err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}
