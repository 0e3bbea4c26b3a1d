// Package sequence formats human-readable display identifiers. The padded
// sequence component always comes from a datastore-assigned serial (or a
// count executed under a row lock, for queue tokens), never from an
// unlocked read-then-use count, so two concurrent inserts can never mint
// the same number.
package sequence

import (
	"fmt"
	"time"
)

const dayLayout = "20060102"

// AppointmentNumber formats APT-YYYYMMDD-NNNN from the appointment's
// serial sequence value.
func AppointmentNumber(day time.Time, seq int64) string {
	return fmt.Sprintf("APT-%s-%04d", day.Format(dayLayout), seq)
}

// InvoiceNumber formats INV-YYYYMMDD-NNNN.
func InvoiceNumber(day time.Time, seq int64) string {
	return fmt.Sprintf("INV-%s-%04d", day.Format(dayLayout), seq)
}

// PrescriptionNumber formats RX-YYYYMMDD-NNNN.
func PrescriptionNumber(day time.Time, seq int64) string {
	return fmt.Sprintf("RX-%s-%04d", day.Format(dayLayout), seq)
}

// LabTestNumber formats LAB-YYYYMMDD-NNNN.
func LabTestNumber(day time.Time, seq int64) string {
	return fmt.Sprintf("LAB-%s-%04d", day.Format(dayLayout), seq)
}

// MedicalRecordNumber formats MRN-YYYY-NNNN, scoped to the registration year.
func MedicalRecordNumber(year int, seq int64) string {
	return fmt.Sprintf("MRN-%d-%04d", year, seq)
}

// QueueToken formats the 1-based per-doctor, per-day position as Q-NNN.
// Position must be the count of non-terminal appointments for the doctor
// and day including the row being numbered, taken under the doctor lock.
func QueueToken(position int) string {
	return fmt.Sprintf("Q-%03d", position)
}
