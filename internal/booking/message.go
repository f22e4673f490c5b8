package booking

import (
	"encoding/json"
	"fmt"
	"time"
)

// TravelDateLayout is the wire format for travel dates.
const TravelDateLayout = "2006-01-02"

// Passenger is one traveller on a booking request.
type Passenger struct {
	PassengerID int64 `json:"passenger_id" validate:"required,gt=0"`
	TicketType  int8  `json:"ticket_type" validate:"required,min=1,max=5"`
}

// Request is the message the admission path publishes and the fulfillment
// worker consumes. The order number doubles as the queue ordering key so
// retries of the same order stay in sequence.
type Request struct {
	OrderNumber     string      `json:"order_number" validate:"required"`
	UserID          int64       `json:"user_id" validate:"required,gt=0"`
	TrainID         int         `json:"train_id" validate:"required,gt=0"`
	DepartureStopID int64       `json:"departure_stop_id" validate:"required,gt=0"`
	ArrivalStopID   int64       `json:"arrival_stop_id" validate:"required,gt=0"`
	TravelDate      string      `json:"travel_date" validate:"required"`
	CarriageTypeID  int         `json:"carriage_type_id" validate:"required,gt=0"`
	Passengers      []Passenger `json:"passengers" validate:"required,min=1,dive"`
	SubmittedAt     time.Time   `json:"submitted_at"`
}

// OrderingKey returns the queue ordering key for the request.
func (r Request) OrderingKey() string {
	return r.OrderNumber
}

// TravelDay parses the wire travel date as UTC midnight.
func (r Request) TravelDay() (time.Time, error) {
	day, err := time.Parse(TravelDateLayout, r.TravelDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing travel date %q: %w", r.TravelDate, err)
	}
	return day, nil
}

// Encode marshals the request for the wire.
func (r Request) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// DecodeRequest unmarshals a wire payload.
func DecodeRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("decoding booking request: %w", err)
	}
	return &req, nil
}
