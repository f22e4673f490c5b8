// Package conflict answers whether a new journey overlaps in time with
// tickets a passenger already holds. Interval checks are strict: journeys
// that merely touch at a boundary do not conflict, and neither does a
// journey that shares a single endpoint with a ticket while running past
// its other end.
package conflict

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/railtix/ticketing-backend/internal/stations"
	"github.com/railtix/ticketing-backend/pkg/logger"
)

// Journey is a leg a passenger wants to ride.
type Journey struct {
	TrainID         int
	DepartureStopID int64
	ArrivalStopID   int64
	TravelDate      time.Time
}

// Conflict is one existing ticket that overlaps the new journey.
type Conflict struct {
	TicketNumber string
	TrainID      int
	Start        time.Time
	End          time.Time
}

// Checker resolves journey windows against a passenger's active tickets.
type Checker struct {
	tickets  *Repository
	stations *stations.Repository
	logg     *logger.Logger
}

// NewChecker builds the conflict checker.
func NewChecker(tickets *Repository, stationsRepo *stations.Repository, logg *logger.Logger) (*Checker, error) {
	if tickets == nil {
		return nil, errors.New("ticket repository is required")
	}
	if stationsRepo == nil {
		return nil, errors.New("stations repository is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Checker{tickets: tickets, stations: stationsRepo, logg: logg}, nil
}

// Check returns the passenger's tickets that overlap the journey in time.
// Journeys or tickets whose schedule carries no usable times are skipped
// rather than refused. excludeTicketID ignores the ticket being changed.
func (c *Checker) Check(ctx context.Context, passengerID int64, journey Journey, excludeTicketID int64) ([]Conflict, error) {
	newWindow, ok, err := c.window(ctx, journey.TrainID, journey.DepartureStopID, journey.ArrivalStopID, journey.TravelDate)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	// overnight arrivals land on the next calendar day, so the candidate
	// range starts one day early and runs through the journey's arrival day
	from := day(journey.TravelDate).AddDate(0, 0, -1)
	to := day(newWindow.end)
	candidates, err := c.tickets.ActiveTicketsInRange(ctx, passengerID, from, to, excludeTicketID)
	if err != nil {
		return nil, err
	}

	var conflicts []Conflict
	for i := range candidates {
		ticket := &candidates[i]
		ticketWindow, ok, err := c.window(ctx, ticket.TrainID, ticket.DepartureStopID, ticket.ArrivalStopID, ticket.TravelDate)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if newWindow.conflictsWith(ticketWindow) {
			conflicts = append(conflicts, Conflict{
				TicketNumber: ticket.TicketNumber,
				TrainID:      ticket.TrainID,
				Start:        ticketWindow.start,
				End:          ticketWindow.end,
			})
		}
	}
	return conflicts, nil
}

// Render formats conflicts into a human-readable refusal message.
func Render(conflicts []Conflict) string {
	if len(conflicts) == 0 {
		return ""
	}
	lines := make([]string, 0, len(conflicts))
	for _, conflict := range conflicts {
		lines = append(lines, fmt.Sprintf(
			"ticket %s on train %d rides %s to %s",
			conflict.TicketNumber,
			conflict.TrainID,
			conflict.Start.Format("2006-01-02 15:04"),
			conflict.End.Format("2006-01-02 15:04"),
		))
	}
	return "journey overlaps existing travel: " + strings.Join(lines, "; ")
}

type window struct {
	start time.Time
	end   time.Time
}

// conflictsWith reports whether the new window w collides with an existing
// ticket's window. Exactly four shapes count: departing strictly inside the
// ticket's ride, arriving strictly inside it, strictly containing it, or
// matching it minute for minute. Journeys that share one endpoint while
// extending past the other, and journeys that merely touch at a boundary,
// are allowed.
func (w window) conflictsWith(other window) bool {
	switch {
	case other.start.Before(w.start) && w.start.Before(other.end):
		return true
	case other.start.Before(w.end) && w.end.Before(other.end):
		return true
	case w.start.Before(other.start) && other.end.Before(w.end):
		return true
	default:
		return w.start.Equal(other.start) && w.end.Equal(other.end)
	}
}

// window resolves a leg's absolute time interval. ok is false when either
// stop lacks a scheduled time, which makes the leg uncheckable.
func (c *Checker) window(ctx context.Context, trainID int, departureStopID, arrivalStopID int64, travelDate time.Time) (window, bool, error) {
	depStop, err := c.stations.Stop(ctx, trainID, departureStopID)
	if err != nil {
		return window{}, false, err
	}
	arrStop, err := c.stations.Stop(ctx, trainID, arrivalStopID)
	if err != nil {
		return window{}, false, err
	}

	depClock, ok := parseClock(depStop.DepartureTime)
	if !ok {
		return window{}, false, nil
	}
	arrClock, ok := parseClock(arrStop.ArrivalTime)
	if !ok {
		return window{}, false, nil
	}

	start := day(travelDate).Add(depClock)
	end := day(travelDate).Add(arrClock)
	// an arrival clock earlier than the departure clock means overnight
	if arrClock < depClock {
		end = end.AddDate(0, 0, 1)
	}
	return window{start: start, end: end}, true, nil
}

func parseClock(value *string) (time.Duration, bool) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return 0, false
	}
	for _, layout := range []string{"15:04:05", "15:04"} {
		if parsed, err := time.Parse(layout, strings.TrimSpace(*value)); err == nil {
			return time.Duration(parsed.Hour())*time.Hour +
				time.Duration(parsed.Minute())*time.Minute +
				time.Duration(parsed.Second())*time.Second, true
		}
	}
	return 0, false
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
