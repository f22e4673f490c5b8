// Package fulfillment turns queued booking requests into durable orders:
// price the passengers, claim seats, persist the order with its tickets. A
// request that cannot be fulfilled is compensated, returning its seats to
// the leg counter, so the fast tier never leaks admissions.
package fulfillment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/railtix/ticketing-backend/internal/booking"
	"github.com/railtix/ticketing-backend/internal/inventory"
	"github.com/railtix/ticketing-backend/internal/seatmap"
	"github.com/railtix/ticketing-backend/internal/seats"
	"github.com/railtix/ticketing-backend/internal/stations"
	"github.com/railtix/ticketing-backend/internal/stock"
	"github.com/railtix/ticketing-backend/pkg/db"
	"github.com/railtix/ticketing-backend/pkg/db/models"
	"github.com/railtix/ticketing-backend/pkg/enums"
	pkgerrors "github.com/railtix/ticketing-backend/pkg/errors"
	"github.com/railtix/ticketing-backend/pkg/logger"
	"github.com/railtix/ticketing-backend/pkg/metrics"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

// Processor runs the fulfillment pipeline for one booking request at a time.
type Processor struct {
	orders    *booking.Repository
	inventory *inventory.Service
	stock     *stock.Controller
	seats     *seats.Service
	stations  *stations.Repository
	metrics   *metrics.PipelineMetrics
	logg      *logger.Logger
	baseDate  time.Time
}

// Params configures the processor.
type Params struct {
	Orders    *booking.Repository
	Inventory *inventory.Service
	Stock     *stock.Controller
	Seats     *seats.Service
	Stations  *stations.Repository
	Metrics   *metrics.PipelineMetrics
	Logger    *logger.Logger
	BaseDate  time.Time
}

// NewProcessor builds the fulfillment processor.
func NewProcessor(p Params) (*Processor, error) {
	if p.Orders == nil {
		return nil, errors.New("order repository is required")
	}
	if p.Inventory == nil {
		return nil, errors.New("inventory service is required")
	}
	if p.Stock == nil {
		return nil, errors.New("stock controller is required")
	}
	if p.Seats == nil {
		return nil, errors.New("seat service is required")
	}
	if p.Stations == nil {
		return nil, errors.New("stations repository is required")
	}
	if p.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if p.Metrics == nil {
		p.Metrics = metrics.NewPipelineMetrics(nil)
	}
	return &Processor{
		orders:    p.Orders,
		inventory: p.Inventory,
		stock:     p.Stock,
		seats:     p.Seats,
		stations:  p.Stations,
		metrics:   p.Metrics,
		logg:      p.Logger,
		baseDate:  p.BaseDate,
	}, nil
}

// Process fulfills one request. A nil return means the message is settled,
// successfully or through compensation; a non-nil return asks for
// redelivery. Redeliveries of an already-fulfilled order are recognized by
// their order number and settled without touching anything.
func (p *Processor) Process(ctx context.Context, req *booking.Request) error {
	ctx = p.logg.WithOrderNumber(ctx, req.OrderNumber)
	ctx = p.logg.WithTrainID(ctx, req.TrainID)

	existing, err := p.orders.OrderByNumber(ctx, req.OrderNumber)
	if err != nil {
		return err
	}
	if existing != nil {
		p.metrics.IncDuplicate()
		p.logg.Info(ctx, "order already fulfilled, settling duplicate delivery")
		return nil
	}

	travelDay, err := req.TravelDay()
	if err != nil {
		p.failAndCompensate(ctx, req, nil, "unparseable travel date", err)
		return nil
	}

	key := inventory.Key{
		TrainID:         req.TrainID,
		DepartureStopID: req.DepartureStopID,
		ArrivalStopID:   req.ArrivalStopID,
		TravelDate:      travelDay,
		CarriageTypeID:  req.CarriageTypeID,
	}

	dateIndex := seatmap.DateIndex(p.baseDate, travelDay)
	if dateIndex == -1 {
		p.failAndCompensate(ctx, req, &key, "travel date outside occupancy window", nil)
		return nil
	}

	depStop, err := p.stations.Stop(ctx, req.TrainID, req.DepartureStopID)
	if err != nil {
		return p.stopLookupFailure(ctx, req, &key, err)
	}
	arrStop, err := p.stations.Stop(ctx, req.TrainID, req.ArrivalStopID)
	if err != nil {
		return p.stopLookupFailure(ctx, req, &key, err)
	}

	basePrice, err := p.inventory.BasePrice(ctx, key)
	if err != nil {
		return err
	}

	assignments := make([]*seats.Assignment, 0, len(req.Passengers))
	for range req.Passengers {
		assignment, err := p.seats.Assign(ctx, req.TrainID, req.CarriageTypeID, dateIndex,
			depStop.SequenceNumber, arrStop.SequenceNumber)
		if err != nil {
			p.releaseAssignments(ctx, req, dateIndex, depStop.SequenceNumber, arrStop.SequenceNumber, assignments)
			p.failAndCompensate(ctx, req, &key, "seat assignment failed", err)
			return nil
		}
		assignments = append(assignments, assignment)
	}

	now := time.Now().UTC()
	order := &models.Order{
		OrderNumber: req.OrderNumber,
		UserID:      req.UserID,
		OrderTime:   now,
		OrderStatus: enums.OrderStatusPendingPayment,
		TicketCount: len(req.Passengers),
	}

	tickets := make([]models.Ticket, 0, len(req.Passengers))
	total := decimal.Zero
	for i, passenger := range req.Passengers {
		price := basePrice.Mul(enums.TicketType(passenger.TicketType).Multiplier()).Round(2)
		total = total.Add(price)
		tickets = append(tickets, models.Ticket{
			TicketNumber:    uuid.NewString(),
			PassengerID:     passenger.PassengerID,
			TrainID:         req.TrainID,
			DepartureStopID: req.DepartureStopID,
			ArrivalStopID:   req.ArrivalStopID,
			TravelDate:      travelDay,
			CarriageTypeID:  req.CarriageTypeID,
			CarriageNumber:  assignments[i].CarriageNumber,
			SeatNumber:      assignments[i].SeatNumber,
			Price:           price,
			TicketStatus:    enums.TicketStatusPendingPayment,
			TicketType:      enums.TicketType(passenger.TicketType),
			CreatedTime:     now,
		})
	}
	order.TotalAmount = total

	err = p.orders.Transaction(ctx, func(tx *gorm.DB) error {
		txRepo := p.orders.WithTx(tx)
		if err := txRepo.CreateOrder(ctx, order); err != nil {
			return err
		}
		for i := range tickets {
			tickets[i].OrderID = order.OrderID
		}
		return txRepo.CreateTickets(ctx, tickets)
	})
	if err != nil {
		p.releaseAssignments(ctx, req, dateIndex, depStop.SequenceNumber, arrStop.SequenceNumber, assignments)
		// a concurrent worker beat us to the order number; its rows stand
		// and the admission stays spent, only our seats go back
		if db.IsUniqueViolation(err, "order_number") {
			p.metrics.IncDuplicate()
			p.logg.Info(ctx, "order fulfilled concurrently, settling duplicate delivery")
			return nil
		}
		p.failAndCompensate(ctx, req, &key, "persisting order", err)
		return nil
	}

	p.metrics.IncProcessed("fulfilled")
	p.logg.Info(ctx, "order fulfilled")
	return nil
}

// stopLookupFailure settles permanently broken requests and retries the rest.
// The leg key rides along so a request refused here still gets its admission
// decrement returned.
func (p *Processor) stopLookupFailure(ctx context.Context, req *booking.Request, key *inventory.Key, err error) error {
	if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		p.failAndCompensate(ctx, req, key, "unknown stop on request", err)
		return nil
	}
	return err
}

func (p *Processor) releaseAssignments(ctx context.Context, req *booking.Request, dateIndex, depSeq, arrSeq int, assignments []*seats.Assignment) {
	var errs error
	for _, assignment := range assignments {
		errs = multierr.Append(errs, p.seats.Release(ctx, req.TrainID, req.CarriageTypeID, dateIndex,
			depSeq, arrSeq, assignment.CarriageNumber, assignment.SeatNumber))
	}
	if errs != nil {
		p.logg.Error(ctx, "releasing claimed seats during compensation", errs)
	}
}

// failAndCompensate settles a request that will never fulfill. The admission
// decrement is undone when the leg key is known; compensation that cannot
// restore the counter is logged, not retried, and left for reconciliation
// to square up.
func (p *Processor) failAndCompensate(ctx context.Context, req *booking.Request, key *inventory.Key, reason string, cause error) {
	if cause != nil {
		p.logg.Error(ctx, "fulfillment failed: "+reason, cause)
	} else {
		p.logg.Warn(ctx, "fulfillment failed: "+reason)
	}

	if key != nil {
		qty := len(req.Passengers)
		if err := p.stock.Increment(ctx, *key, qty); err != nil && !pkgerrors.HasCode(err, pkgerrors.CodeInventoryMiss) {
			p.logg.Error(ctx, "returning seats to leg counter", err)
		}
	}

	// delete any rows a previous partial attempt left behind, but never
	// touch an order that progressed past pending payment
	order, err := p.orders.OrderByNumber(ctx, req.OrderNumber)
	if err != nil {
		p.logg.Error(ctx, "loading order during compensation", err)
	} else if order != nil && order.OrderStatus == enums.OrderStatusPendingPayment {
		err := p.orders.Transaction(ctx, func(tx *gorm.DB) error {
			txRepo := p.orders.WithTx(tx)
			if err := txRepo.DeleteTicketsForOrder(ctx, order.OrderID); err != nil {
				return err
			}
			return txRepo.UpdateOrderStatus(ctx, order.OrderID, enums.OrderStatusCancelled)
		})
		if err != nil {
			p.logg.Error(ctx, "removing partial order rows", err)
		}
	}

	p.metrics.IncCompensated()
	p.metrics.IncProcessed("failed")
}
