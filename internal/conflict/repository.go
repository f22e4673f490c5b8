package conflict

import (
	"context"
	"time"

	"github.com/railtix/ticketing-backend/pkg/db/models"
	"github.com/railtix/ticketing-backend/pkg/enums"
	"gorm.io/gorm"
)

// Repository reads the tickets a passenger already holds.
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

// ActiveTicketsInRange lists the passenger's seat-holding tickets whose
// travel date falls in [from, to]. excludeTicketID skips the ticket being
// changed; pass 0 to exclude nothing.
func (r *Repository) ActiveTicketsInRange(ctx context.Context, passengerID int64, from, to time.Time, excludeTicketID int64) ([]models.Ticket, error) {
	query := r.db.WithContext(ctx).
		Where("passenger_id = ?", passengerID).
		Where("ticket_status IN ?", []enums.TicketStatus{enums.TicketStatusPendingPayment, enums.TicketStatusUnused}).
		Where("travel_date BETWEEN ? AND ?", from, to)
	if excludeTicketID > 0 {
		query = query.Where("ticket_id <> ?", excludeTicketID)
	}

	var tickets []models.Ticket
	if err := query.Order("ticket_id ASC").Find(&tickets).Error; err != nil {
		return nil, err
	}
	return tickets, nil
}
