package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses as stored by the POS application.
const (
	OrderStatusPending   = "PENDING"
	OrderStatusCompleted = "COMPLETED"
	OrderStatusCancelled = "CANCELLED"
)

// Order is a bill created by the POS application. This service only reads
// completed orders and flips SendStatement after a report is delivered.
type Order struct {
	ID            int64           `gorm:"column:id;primaryKey"`
	TableID       *int64          `gorm:"column:tableId"`
	Total         decimal.Decimal `gorm:"column:total"`
	Status        string          `gorm:"column:status"`
	SendStatement bool            `gorm:"column:sendStatement"`
	CreatedAt     time.Time       `gorm:"column:createdAt"`
	CompletedAt   *time.Time      `gorm:"column:completedAt"`
}

// TableName preserves the Prisma-style quoted identifier used by the POS schema.
func (Order) TableName() string { return "Order" }

// OrderItem is a line item within an order.
type OrderItem struct {
	ID         int64 `gorm:"column:id;primaryKey"`
	OrderID    int64 `gorm:"column:orderId"`
	MenuItemID int64 `gorm:"column:menuItemId"`
	Quantity   int   `gorm:"column:quantity"`
}

func (OrderItem) TableName() string { return "OrderItem" }

// MenuItem is a sellable dish with a numeric item code.
type MenuItem struct {
	ID         int64           `gorm:"column:id;primaryKey"`
	Name       string          `gorm:"column:name"`
	ItemNumber int             `gorm:"column:itemNumber"`
	Price      decimal.Decimal `gorm:"column:price"`
}

func (MenuItem) TableName() string { return "MenuItem" }

// DiningTable is a physical table; orders without one are take-away parcels.
type DiningTable struct {
	ID     int64 `gorm:"column:id;primaryKey"`
	Number int   `gorm:"column:number"`
}

func (DiningTable) TableName() string { return "Table" }

// ReportRow is one aggregated line of the sales report: an order joined with
// its table and a precomputed items summary. TableNumber is nil for parcels.
type ReportRow struct {
	OrderID      int64           `gorm:"column:order_id"`
	TableNumber  *int            `gorm:"column:table_number"`
	Total        decimal.Decimal `gorm:"column:total"`
	CreatedAt    time.Time       `gorm:"column:created_at"`
	CompletedAt  time.Time       `gorm:"column:completed_at"`
	ItemsSummary string          `gorm:"column:items_summary"`
}
