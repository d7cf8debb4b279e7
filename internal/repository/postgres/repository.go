package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/riadkhan60/chickenhut/internal/domain/models"
)

// Repository defines the persistence operations the report service needs:
// the unreported-order source, the mark-as-reported mutation and the
// singleton sending-time record.
type Repository interface {
	FetchUnreported(ctx context.Context) ([]models.ReportRow, error)
	FetchForReview(ctx context.Context, limit int, includeReported bool) ([]models.ReportRow, error)
	MarkReported(ctx context.Context, ids []int64) error
	SendingTime(ctx context.Context) (string, error)
	UpdateSendingTime(ctx context.Context, hhmm string) error
}

const unreportedQuery = `
SELECT
  o.id AS order_id,
  t.number AS table_number,
  o."completedAt" AS completed_at,
  o."createdAt" AS created_at,
  o.total AS total,
  STRING_AGG(CONCAT(oi.quantity, 'x ', m.name, ' (itm-no:', m."itemNumber", ')'), ', ') AS items_summary
FROM "Order" o
LEFT JOIN "Table" t ON o."tableId" = t.id
JOIN "OrderItem" oi ON o.id = oi."orderId"
JOIN "MenuItem" m ON oi."menuItemId" = m.id
WHERE o."completedAt" IS NOT NULL
  AND o.status = 'COMPLETED'
  AND o."sendStatement" = false
GROUP BY o.id, t.number, o."completedAt", o."createdAt", o.total
ORDER BY o."completedAt" ASC`

const reviewQuery = `
SELECT
  o.id AS order_id,
  t.number AS table_number,
  o."completedAt" AS completed_at,
  o."createdAt" AS created_at,
  o.total AS total,
  STRING_AGG(CONCAT(oi.quantity, 'x ', m.name, ' (itm-no:', m."itemNumber", ')'), ', ') AS items_summary
FROM "Order" o
LEFT JOIN "Table" t ON o."tableId" = t.id
JOIN "OrderItem" oi ON o.id = oi."orderId"
JOIN "MenuItem" m ON oi."menuItemId" = m.id
WHERE o."completedAt" IS NOT NULL
  AND o.status = 'COMPLETED'
  AND (o."sendStatement" = false OR ?)
GROUP BY o.id, t.number, o."completedAt", o."createdAt", o.total
ORDER BY o."completedAt" ASC
LIMIT ?`

// PostgresRepository implements Repository on top of the POS database.
type PostgresRepository struct {
	db *gorm.DB
}

// NewPostgresRepository connects to the POS database and verifies the
// connection. It also migrates the sending-time table, which this service
// owns; the POS schema itself is managed by the main application.
func NewPostgresRepository(ctx context.Context, dsn string) (*PostgresRepository, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	if err := db.WithContext(ctx).AutoMigrate(&models.ReportSendingTime{}); err != nil {
		return nil, fmt.Errorf("failed to migrate sending time table: %w", err)
	}

	return &PostgresRepository{db: db}, nil
}

// FetchUnreported returns all completed orders not yet included in a
// delivered report, oldest completion first, each carrying its aggregated
// items summary. An empty slice is a valid result.
func (r *PostgresRepository) FetchUnreported(ctx context.Context) ([]models.ReportRow, error) {
	var rows []models.ReportRow
	if err := r.db.WithContext(ctx).Raw(unreportedQuery).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch unreported orders: %w", err)
	}
	return rows, nil
}

// FetchForReview is the relaxed variant behind the test-pdf endpoint:
// optionally includes already-reported orders and caps the row count.
func (r *PostgresRepository) FetchForReview(ctx context.Context, limit int, includeReported bool) ([]models.ReportRow, error) {
	if limit <= 0 {
		limit = 1000
	}
	var rows []models.ReportRow
	if err := r.db.WithContext(ctx).Raw(reviewQuery, includeReported, limit).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch orders for review: %w", err)
	}
	return rows, nil
}

// MarkReported flags the given orders as included in a delivered report.
// An empty id set is a no-op, not an error.
func (r *PostgresRepository) MarkReported(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id IN ?", ids).
		Update("sendStatement", true)
	if result.Error != nil {
		return fmt.Errorf("failed to mark %d orders as reported: %w", len(ids), result.Error)
	}
	return nil
}

// SendingTime returns the persisted trigger time, creating the default
// record on first read if none exists.
func (r *PostgresRepository) SendingTime(ctx context.Context) (string, error) {
	var rec models.ReportSendingTime
	err := r.db.WithContext(ctx).Order("id DESC").First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		rec = models.ReportSendingTime{Time: models.DefaultSendingTime}
		if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
			return "", fmt.Errorf("failed to create default sending time: %w", err)
		}
		return rec.Time, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read sending time: %w", err)
	}
	return rec.Time, nil
}

// UpdateSendingTime replaces the singleton trigger time.
func (r *PostgresRepository) UpdateSendingTime(ctx context.Context, hhmm string) error {
	var rec models.ReportSendingTime
	err := r.db.WithContext(ctx).Order("id DESC").First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		rec = models.ReportSendingTime{Time: hhmm}
		if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
			return fmt.Errorf("failed to create sending time: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read sending time: %w", err)
	}
	if err := r.db.WithContext(ctx).Model(&rec).Update("time", hhmm).Error; err != nil {
		return fmt.Errorf("failed to update sending time: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (r *PostgresRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
