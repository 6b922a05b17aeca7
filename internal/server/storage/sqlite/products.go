package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iudanet/shopkeeper/internal/models"
	"github.com/iudanet/shopkeeper/internal/server/storage"
)

var _ storage.ProductStorage = (*Storage)(nil)

// ListProducts returns every catalog record ordered by sortOrder, then id
func (s *Storage) ListProducts(ctx context.Context) ([]models.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM products ORDER BY sort_order, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	records := []models.Record{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}

		record, err := decodePayload(payload)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}

	return records, nil
}

// GetProduct retrieves a single record by ID
func (s *Storage) GetProduct(ctx context.Context, id string) (*models.Record, error) {
	record, err := getProduct(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// SaveProduct creates or updates a record; a stored version with a greater
// lastUpdated is kept and returned with applied == false.
func (s *Storage) SaveProduct(ctx context.Context, record models.Record) (models.Record, bool, error) {
	if record.ID == "" {
		return models.Record{}, false, fmt.Errorf("%w: empty id", storage.ErrInvalidRecord)
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return models.Record{}, false, fmt.Errorf("%w: %v", storage.ErrInvalidRecord, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Record{}, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	existing, err := getProduct(ctx, tx, record.ID)
	switch {
	case errors.Is(err, storage.ErrProductNotFound):
	case err != nil:
		return models.Record{}, false, fmt.Errorf("failed to check existing product: %w", err)
	case existing.LastUpdated > record.LastUpdated:
		return existing, false, nil
	}

	now := s.now().Unix()
	query := `
		INSERT INTO products (id, payload, sort_order, last_updated, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			payload = excluded.payload,
			sort_order = excluded.sort_order,
			last_updated = excluded.last_updated,
			updated_at = excluded.updated_at
	`
	if _, err := tx.ExecContext(ctx, query,
		record.ID,
		string(payload),
		sortOrder(payload),
		record.LastUpdated,
		now,
		now,
	); err != nil {
		return models.Record{}, false, fmt.Errorf("failed to upsert product: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.Record{}, false, fmt.Errorf("failed to commit product: %w", err)
	}

	return models.Record{ID: record.ID, Payload: payload, LastUpdated: record.LastUpdated}, true, nil
}

// DeleteProduct removes record by ID
func (s *Storage) DeleteProduct(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrProductNotFound
	}

	return nil
}

// CountProducts returns number of stored records
func (s *Storage) CountProducts(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return n, nil
}

// queryer общий интерфейс *sql.DB и *sql.Tx
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getProduct(ctx context.Context, q queryer, id string) (models.Record, error) {
	var payload string
	err := q.QueryRowContext(ctx, `SELECT payload FROM products WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Record{}, storage.ErrProductNotFound
		}
		return models.Record{}, fmt.Errorf("failed to get product: %w", err)
	}
	return decodePayload(payload)
}

func decodePayload(payload string) (models.Record, error) {
	var record models.Record
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return models.Record{}, fmt.Errorf("failed to decode stored product: %w", err)
	}
	return record, nil
}

// sortOrder достает sortOrder для индекса; нечисловое значение дает 0
func sortOrder(payload []byte) int {
	var meta struct {
		SortOrder float64 `json:"sortOrder"`
	}
	if err := json.Unmarshal(payload, &meta); err != nil {
		return 0
	}
	return int(meta.SortOrder)
}
