package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order is a completed checkout. It owns its items; removing the order
// removes them too.
type Order struct {
	ID        uint        `gorm:"primaryKey"`
	UserID    uint        `gorm:"not null;index"`
	User      User        `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Status    OrderStatus `gorm:"size:20;not null"`
	CreatedAt time.Time

	// Shipping and contact details captured at checkout.
	FullName string `gorm:"size:200;not null"`
	Email    string `gorm:"size:254;not null"`
	Address  string `gorm:"type:text;not null"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (o *Order) TableName() string {
	return "orders"
}

// Total sums the line totals of the loaded items.
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// OrderItem is one line of an order. UnitPrice is the product price at the
// time of checkout and never follows later price changes.
type OrderItem struct {
	ID        uint            `gorm:"primaryKey"`
	OrderID   uint            `gorm:"not null;index"`
	ProductID uint            `gorm:"not null;index"`
	Product   Product         `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT"`
	Quantity  int             `gorm:"not null;check:chk_order_items_quantity,quantity > 0"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(10,2);not null"`
}

func (i *OrderItem) TableName() string {
	return "order_items"
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
