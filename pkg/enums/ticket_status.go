package enums

import "fmt"

// TicketStatus maps to the ticket_status column.
type TicketStatus int8

const (
	TicketStatusPendingPayment TicketStatus = 0
	TicketStatusUnused         TicketStatus = 1
	TicketStatusUsed           TicketStatus = 2
	TicketStatusRefunded       TicketStatus = 3
	TicketStatusChanged        TicketStatus = 4
)

var ticketStatusNames = map[TicketStatus]string{
	TicketStatusPendingPayment: "pending_payment",
	TicketStatusUnused:         "unused",
	TicketStatusUsed:           "used",
	TicketStatusRefunded:       "refunded",
	TicketStatusChanged:        "changed",
}

// IsValid reports whether the value is a known ticket status code.
func (s TicketStatus) IsValid() bool {
	_, ok := ticketStatusNames[s]
	return ok
}

// Occupies reports whether a ticket in this status still holds a seat
// interval and counts against the passenger's schedule.
func (s TicketStatus) Occupies() bool {
	return s == TicketStatusPendingPayment || s == TicketStatusUnused
}

func (s TicketStatus) String() string {
	if name, ok := ticketStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("ticket_status(%d)", int8(s))
}
