// Package booking is the admission path. A booking succeeds the moment the
// leg's Redis counter admits it and the request is queued; everything
// durable happens later in the fulfillment worker. If the queue refuses the
// message the seats go straight back.
package booking

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/railtix/ticketing-backend/internal/conflict"
	"github.com/railtix/ticketing-backend/internal/inventory"
	"github.com/railtix/ticketing-backend/internal/seatmap"
	"github.com/railtix/ticketing-backend/internal/seats"
	"github.com/railtix/ticketing-backend/internal/stations"
	"github.com/railtix/ticketing-backend/internal/stock"
	"github.com/railtix/ticketing-backend/pkg/enums"
	pkgerrors "github.com/railtix/ticketing-backend/pkg/errors"
	"github.com/railtix/ticketing-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SubmitInput is a booking attempt before admission.
type SubmitInput struct {
	UserID          int64
	TrainID         int
	DepartureStopID int64
	ArrivalStopID   int64
	TravelDate      time.Time
	CarriageTypeID  int
	Passengers      []Passenger
}

// Service handles booking admission and refunds.
type Service struct {
	repo          *Repository
	stock         *stock.Controller
	seats         *seats.Service
	checker       *conflict.Checker
	stations      *stations.Repository
	publisher     Publisher
	validate      *validator.Validate
	logg          *logger.Logger
	maxPassengers int
	baseDate      time.Time
}

// Params configures the booking service.
type Params struct {
	Repo          *Repository
	Stock         *stock.Controller
	Seats         *seats.Service
	Checker       *conflict.Checker
	Stations      *stations.Repository
	Publisher     Publisher
	Logger        *logger.Logger
	MaxPassengers int
	BaseDate      time.Time
}

// NewService builds the booking service.
func NewService(p Params) (*Service, error) {
	if p.Repo == nil {
		return nil, errors.New("booking repository is required")
	}
	if p.Stock == nil {
		return nil, errors.New("stock controller is required")
	}
	if p.Seats == nil {
		return nil, errors.New("seat service is required")
	}
	if p.Checker == nil {
		return nil, errors.New("conflict checker is required")
	}
	if p.Stations == nil {
		return nil, errors.New("stations repository is required")
	}
	if p.Publisher == nil {
		return nil, errors.New("queue publisher is required")
	}
	if p.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if p.MaxPassengers <= 0 {
		p.MaxPassengers = 10
	}
	return &Service{
		repo:          p.Repo,
		stock:         p.Stock,
		seats:         p.Seats,
		checker:       p.Checker,
		stations:      p.Stations,
		publisher:     p.Publisher,
		validate:      validator.New(),
		logg:          p.Logger,
		maxPassengers: p.MaxPassengers,
		baseDate:      p.BaseDate,
	}, nil
}

// Submit admits a booking. On success the returned order number is already
// on the queue; the caller polls for the fulfilled order.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (string, error) {
	if len(in.Passengers) > s.maxPassengers {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "too many passengers in one booking").
			WithDetails(map[string]any{"max": s.maxPassengers, "got": len(in.Passengers)})
	}

	req := Request{
		OrderNumber:     uuid.NewString(),
		UserID:          in.UserID,
		TrainID:         in.TrainID,
		DepartureStopID: in.DepartureStopID,
		ArrivalStopID:   in.ArrivalStopID,
		TravelDate:      in.TravelDate.Format(TravelDateLayout),
		CarriageTypeID:  in.CarriageTypeID,
		Passengers:      in.Passengers,
		SubmittedAt:     time.Now().UTC(),
	}
	if err := s.validate.Struct(req); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid booking request")
	}

	ctx = s.logg.WithOrderNumber(ctx, req.OrderNumber)
	ctx = s.logg.WithTrainID(ctx, req.TrainID)

	journey := conflict.Journey{
		TrainID:         in.TrainID,
		DepartureStopID: in.DepartureStopID,
		ArrivalStopID:   in.ArrivalStopID,
		TravelDate:      in.TravelDate,
	}
	for _, passenger := range in.Passengers {
		conflicts, err := s.checker.Check(ctx, passenger.PassengerID, journey, 0)
		if err != nil {
			return "", err
		}
		if len(conflicts) > 0 {
			return "", pkgerrors.New(pkgerrors.CodeTimeConflict, conflict.Render(conflicts)).
				WithDetails(map[string]any{"passenger_id": passenger.PassengerID})
		}
	}

	key := inventory.Key{
		TrainID:         in.TrainID,
		DepartureStopID: in.DepartureStopID,
		ArrivalStopID:   in.ArrivalStopID,
		TravelDate:      in.TravelDate,
		CarriageTypeID:  in.CarriageTypeID,
	}
	qty := len(in.Passengers)
	if err := s.stock.Decrement(ctx, key, qty); err != nil {
		return "", err
	}

	payload, err := req.Encode()
	if err != nil {
		s.rollbackStock(ctx, key, qty)
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding booking request")
	}
	if _, err := s.publisher.Publish(ctx, payload, req.OrderingKey()); err != nil {
		s.rollbackStock(ctx, key, qty)
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queueing booking request")
	}

	s.logg.Info(ctx, "booking admitted")
	return req.OrderNumber, nil
}

func (s *Service) rollbackStock(ctx context.Context, key inventory.Key, qty int) {
	if err := s.stock.Increment(ctx, key, qty); err != nil {
		s.logg.Error(ctx, "returning seats after failed admission", err)
	}
}

// Refund releases one ticket: seat bits cleared, the leg counter restored,
// the ticket marked refunded and the order shrunk. A ticket that no longer
// occupies a seat refuses the refund, which also makes redelivered refund
// calls harmless.
func (s *Service) Refund(ctx context.Context, orderNumber, ticketNumber string) (decimal.Decimal, error) {
	ctx = s.logg.WithOrderNumber(ctx, orderNumber)

	order, err := s.repo.OrderByNumber(ctx, orderNumber)
	if err != nil {
		return decimal.Zero, err
	}
	if order == nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}

	ticket, err := s.repo.TicketByNumber(ctx, ticketNumber)
	if err != nil {
		return decimal.Zero, err
	}
	if ticket == nil || ticket.OrderID != order.OrderID {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "ticket not found on order")
	}
	if !ticket.TicketStatus.Occupies() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeStateConflict, "ticket no longer holds a seat").
			WithDetails(map[string]any{"status": ticket.TicketStatus.String()})
	}

	if err := s.releaseSeat(ctx, ticket.TrainID, ticket.CarriageTypeID, ticket.TravelDate,
		ticket.DepartureStopID, ticket.ArrivalStopID, ticket.CarriageNumber, ticket.SeatNumber); err != nil {
		return decimal.Zero, err
	}

	key := inventory.Key{
		TrainID:         ticket.TrainID,
		DepartureStopID: ticket.DepartureStopID,
		ArrivalStopID:   ticket.ArrivalStopID,
		TravelDate:      ticket.TravelDate,
		CarriageTypeID:  ticket.CarriageTypeID,
	}
	if err := s.stock.Increment(ctx, key, 1); err != nil {
		// the leg may have aged out of the cache; the reconciler's restore
		// pass will rebuild it from the ledger
		if !pkgerrors.HasCode(err, pkgerrors.CodeInventoryMiss) {
			return decimal.Zero, err
		}
		s.logg.Warn(ctx, "leg counter missing during refund")
	}

	refunded := ticket.Price
	err = s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.UpdateTicketStatus(ctx, ticket.TicketID, enums.TicketStatusRefunded); err != nil {
			return err
		}
		newTotal := order.TotalAmount.Sub(refunded)
		newCount := order.TicketCount - 1
		if newCount < 0 {
			newCount = 0
		}
		if err := txRepo.UpdateOrderTotals(ctx, order.OrderID, newTotal, newCount); err != nil {
			return err
		}
		if newCount == 0 {
			return txRepo.UpdateOrderStatus(ctx, order.OrderID, enums.OrderStatusCancelled)
		}
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	s.logg.Info(ctx, "ticket refunded")
	return refunded, nil
}

// releaseSeat clears the ticket's occupancy bits. Tickets whose travel date
// already left the rolling window have nothing to clear.
func (s *Service) releaseSeat(ctx context.Context, trainID, carriageTypeID int, travelDate time.Time, departureStopID, arrivalStopID int64, carriageNumber, seatNumber string) error {
	if carriageNumber == "" || seatNumber == "" {
		return nil
	}
	dateIndex := seatmap.DateIndex(s.baseDate, travelDate)
	if dateIndex == -1 {
		return nil
	}

	depStop, err := s.stations.Stop(ctx, trainID, departureStopID)
	if err != nil {
		return err
	}
	arrStop, err := s.stations.Stop(ctx, trainID, arrivalStopID)
	if err != nil {
		return err
	}
	return s.seats.Release(ctx, trainID, carriageTypeID, dateIndex,
		depStop.SequenceNumber, arrStop.SequenceNumber, carriageNumber, seatNumber)
}
