package enums

import "github.com/shopspring/decimal"

// TicketType is the fare category a passenger travels under. Codes are part
// of the booking message format.
type TicketType int8

const (
	TicketTypeAdult    TicketType = 1
	TicketTypeChild    TicketType = 2
	TicketTypeStudent  TicketType = 3
	TicketTypeDisabled TicketType = 4
	TicketTypeMilitary TicketType = 5
)

var (
	fullFare = decimal.NewFromInt(1)
	halfFare = decimal.NewFromFloat(0.5)

	ticketTypeMultipliers = map[TicketType]decimal.Decimal{
		TicketTypeAdult:    fullFare,
		TicketTypeChild:    halfFare,
		TicketTypeStudent:  decimal.NewFromFloat(0.8),
		TicketTypeDisabled: halfFare,
		TicketTypeMilitary: halfFare,
	}

	ticketTypeNames = map[TicketType]string{
		TicketTypeAdult:    "adult",
		TicketTypeChild:    "child",
		TicketTypeStudent:  "student",
		TicketTypeDisabled: "disabled",
		TicketTypeMilitary: "military",
	}
)

// Multiplier returns the fare discount factor for the ticket type. Unknown
// codes ride at full fare rather than failing the booking.
func (t TicketType) Multiplier() decimal.Decimal {
	if m, ok := ticketTypeMultipliers[t]; ok {
		return m
	}
	return fullFare
}

func (t TicketType) String() string {
	if name, ok := ticketTypeNames[t]; ok {
		return name
	}
	return "adult"
}
