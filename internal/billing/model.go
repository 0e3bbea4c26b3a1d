package billing

import (
	"time"

	"github.com/google/uuid"
)

type InvoiceStatus string

const (
	StatusPending   InvoiceStatus = "pending"
	StatusPaid      InvoiceStatus = "paid"
	StatusCancelled InvoiceStatus = "cancelled"
)

type Invoice struct {
	ID            uuid.UUID
	Seq           int64
	InvoiceNumber string
	PatientID     uuid.UUID
	AppointmentID *uuid.UUID
	TotalAmount   float64
	Status        InvoiceStatus
	PaymentMethod *string
	PaidAt        *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type InvoiceItem struct {
	ID          uuid.UUID
	InvoiceID   uuid.UUID
	Description string
	Quantity    int
	UnitPrice   float64
	Subtotal    float64
}

type InvoiceDetail struct {
	Invoice
	Items []InvoiceItem
}
