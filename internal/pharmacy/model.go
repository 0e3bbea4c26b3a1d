package pharmacy

import (
	"time"

	"github.com/google/uuid"
)

type PrescriptionStatus string

const (
	StatusActive    PrescriptionStatus = "active"
	StatusCompleted PrescriptionStatus = "completed"
	StatusCancelled PrescriptionStatus = "cancelled"
)

type Medicine struct {
	ID        uuid.UUID
	Name      string
	Stock     int
	MinStock  int
	UnitPrice float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BelowMinimum reports whether the stock level has fallen under the
// reorder threshold.
func (m *Medicine) BelowMinimum() bool {
	return m.Stock < m.MinStock
}

type Prescription struct {
	ID                 uuid.UUID
	Seq                int64
	PrescriptionNumber string
	PatientID          uuid.UUID
	DoctorID           uuid.UUID
	AppointmentID      *uuid.UUID
	Status             PrescriptionStatus
	DispensedAt        *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type PrescriptionItem struct {
	ID             uuid.UUID
	PrescriptionID uuid.UUID
	MedicineID     uuid.UUID
	Quantity       int
	Dosage         string
}

type PrescriptionDetail struct {
	Prescription
	Items []PrescriptionItem
}

// StockChange captures one medicine decrement applied during a
// dispensation, for the per-item audit trail.
type StockChange struct {
	MedicineID   uuid.UUID
	MedicineName string
	Quantity     int
	StockBefore  int
	StockAfter   int
}
