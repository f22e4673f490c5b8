package booking

import (
	"context"
	"errors"
	"time"

	"github.com/railtix/ticketing-backend/pkg/db/models"
	"github.com/railtix/ticketing-backend/pkg/enums"
	pkgerrors "github.com/railtix/ticketing-backend/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repository persists orders and their tickets.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// CreateOrder inserts a new order row.
func (r *Repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// OrderByNumber loads an order, or nil when the number is unknown.
func (r *Repository) OrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).First(&order, "order_number = ?", orderNumber).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateOrderStatus moves an order to a new status.
func (r *Repository) UpdateOrderStatus(ctx context.Context, orderID int64, status enums.OrderStatus) error {
	if !status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("order_id = ?", orderID).
		Update("order_status", status).Error
}

// UpdateOrderTotals rewrites an order's amount and ticket count, used when
// refunds shrink the order.
func (r *Repository) UpdateOrderTotals(ctx context.Context, orderID int64, total decimal.Decimal, ticketCount int) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("order_id = ?", orderID).
		Updates(map[string]any{
			"total_amount": total,
			"ticket_count": ticketCount,
		}).Error
}

// MarkOrderPaid stamps payment metadata and moves the order to paid.
func (r *Repository) MarkOrderPaid(ctx context.Context, orderID int64, method string, paidAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("order_id = ? AND order_status = ?", orderID, enums.OrderStatusPendingPayment).
		Updates(map[string]any{
			"order_status":   enums.OrderStatusPaid,
			"payment_method": method,
			"payment_time":   paidAt,
		}).Error
}

// CreateTickets inserts every ticket of an order in one statement.
func (r *Repository) CreateTickets(ctx context.Context, tickets []models.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&tickets).Error
}

// TicketsForOrder lists an order's tickets.
func (r *Repository) TicketsForOrder(ctx context.Context, orderID int64) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("ticket_id ASC").
		Find(&tickets).Error
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

// TicketByNumber loads one ticket, or nil when the number is unknown.
func (r *Repository) TicketByNumber(ctx context.Context, ticketNumber string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := r.db.WithContext(ctx).First(&ticket, "ticket_number = ?", ticketNumber).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// UpdateTicketStatus moves a ticket to a new status.
func (r *Repository) UpdateTicketStatus(ctx context.Context, ticketID int64, status enums.TicketStatus) error {
	if !status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid ticket status")
	}
	return r.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("ticket_id = ?", ticketID).
		Update("ticket_status", status).Error
}

// DeleteTicketsForOrder removes every ticket row of an order. Compensation
// calls this after a failed fulfillment.
func (r *Repository) DeleteTicketsForOrder(ctx context.Context, orderID int64) error {
	return r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Delete(&models.Ticket{}).Error
}

// Transaction runs fn inside one database transaction.
func (r *Repository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}
