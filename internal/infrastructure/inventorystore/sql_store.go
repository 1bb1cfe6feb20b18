// Package inventorystore persists on-hand stock levels and their movement log.
package inventorystore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/erp/purchasing/internal/domain/inventory"
	"github.com/erp/purchasing/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// pq error code for a violated CHECK constraint
const checkViolation = "23514"

// SQLStore implements inventory.Store on the stock_levels and stock_movements tables
type SQLStore struct {
	DB *sqlx.DB
}

// NewSQLStore creates a SQLStore on an open connection
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{DB: db}
}

// Open connects to PostgreSQL with the database settings and returns a SQLStore
func Open(cfg *config.DatabaseConfig) (*SQLStore, error) {
	db, err := sqlx.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open inventory store: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	return &SQLStore{DB: db}, nil
}

// Close closes the underlying connection pool
func (s *SQLStore) Close() error {
	return s.DB.Close()
}

type movementRow struct {
	ID         uuid.UUID `db:"id"`
	ProductID  uuid.UUID `db:"product_id"`
	Delta      int64     `db:"delta"`
	StockLevel int64     `db:"stock_level"`
	Reference  string    `db:"reference"`
	CreatedAt  time.Time `db:"created_at"`
}

// GetStock implements inventory.Store
func (s *SQLStore) GetStock(ctx context.Context, productID uuid.UUID) (int64, error) {
	level, err := getLevel(ctx, s.DB, productID)
	if err != nil {
		return 0, inventory.NewStoreError("get", err)
	}
	return level, nil
}

// AdjustStock implements inventory.Store. The movement reference is unique:
// replaying a reference that was already applied leaves the level unchanged
// and returns the current level.
func (s *SQLStore) AdjustStock(ctx context.Context, productID uuid.UUID, delta int64, reference string) (int64, error) {
	movementID := uuid.New()
	if reference == "" {
		reference = "movement:" + movementID.String()
	}

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return 0, inventory.NewStoreError("adjust", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var level int64
	err = tx.GetContext(ctx, &level, `
        INSERT INTO stock_levels (product_id, stock_level, updated_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (product_id)
        DO UPDATE SET
            stock_level = stock_levels.stock_level + EXCLUDED.stock_level,
            updated_at = NOW()
        WHERE stock_levels.stock_level + EXCLUDED.stock_level >= 0
        RETURNING stock_level`, productID, delta)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isCheckViolation(err) {
			_ = tx.Rollback()
			current, getErr := getLevel(ctx, s.DB, productID)
			if getErr != nil {
				return 0, inventory.NewStoreError("adjust", getErr)
			}
			return current, inventory.NewInsufficientStockError(productID, current, delta)
		}
		return 0, inventory.NewStoreError("adjust", err)
	}

	res, err := tx.ExecContext(ctx, `
        INSERT INTO stock_movements (id, product_id, delta, stock_level, reference, created_at)
        VALUES ($1, $2, $3, $4, $5, NOW())
        ON CONFLICT (reference) DO NOTHING`, movementID, productID, delta, level, reference)
	if err != nil {
		return 0, inventory.NewStoreError("adjust", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return 0, inventory.NewStoreError("adjust", err)
	}
	if inserted == 0 {
		// already applied under this reference
		_ = tx.Rollback()
		current, getErr := getLevel(ctx, s.DB, productID)
		if getErr != nil {
			return 0, inventory.NewStoreError("adjust", getErr)
		}
		return current, nil
	}

	if err := tx.Commit(); err != nil {
		return 0, inventory.NewStoreError("adjust", err)
	}
	return level, nil
}

// ListMovements implements inventory.MovementReader
func (s *SQLStore) ListMovements(ctx context.Context, productID uuid.UUID, limit int) ([]inventory.Movement, error) {
	query := `SELECT id, product_id, delta, stock_level, reference, created_at
        FROM stock_movements WHERE product_id = $1 ORDER BY created_at DESC, id`
	args := []interface{}{productID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	var rows []movementRow
	if err := s.DB.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, inventory.NewStoreError("list movements", err)
	}

	movements := make([]inventory.Movement, len(rows))
	for i, r := range rows {
		movements[i] = inventory.Movement{
			ID:         r.ID,
			ProductID:  r.ProductID,
			Delta:      r.Delta,
			StockAfter: r.StockLevel,
			Reference:  r.Reference,
			CreatedAt:  r.CreatedAt,
		}
	}
	return movements, nil
}

func getLevel(ctx context.Context, q sqlx.QueryerContext, productID uuid.UUID) (int64, error) {
	var level int64
	err := sqlx.GetContext(ctx, q, &level, `SELECT stock_level FROM stock_levels WHERE product_id = $1`, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return level, err
}

func isCheckViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == checkViolation
}

var (
	_ inventory.Store          = (*SQLStore)(nil)
	_ inventory.MovementReader = (*SQLStore)(nil)
)
