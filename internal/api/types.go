package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/careops/hospital-ops/internal/billing"
	"github.com/careops/hospital-ops/internal/booking"
	"github.com/careops/hospital-ops/internal/pharmacy"
)

type BookAppointmentRequest struct {
	PatientID string   `json:"patient_id"`
	DoctorID  string   `json:"doctor_id"`
	Date      string   `json:"appointment_date"` // YYYY-MM-DD
	Time      string   `json:"appointment_time"` // HH:MM
	Type      string   `json:"type"`
	Reason    string   `json:"reason,omitempty"`
	Symptoms  []string `json:"symptoms,omitempty"`
}

type AppointmentResponse struct {
	ID                uuid.UUID `json:"id"`
	AppointmentNumber string    `json:"appointment_number"`
	PatientID         uuid.UUID `json:"patient_id"`
	DoctorID          uuid.UUID `json:"doctor_id"`
	Date              string    `json:"appointment_date"`
	Time              string    `json:"appointment_time"`
	Type              string    `json:"type"`
	Status            string    `json:"status"`
	QueueToken        string    `json:"queue_token"`
	CreatedAt         time.Time `json:"created_at"`
}

func toAppointmentResponse(a *booking.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:                a.ID,
		AppointmentNumber: a.AppointmentNumber,
		PatientID:         a.PatientID,
		DoctorID:          a.DoctorID,
		Date:              a.Date.Format("2006-01-02"),
		Time:              a.TimeOfDay,
		Type:              a.Type,
		Status:            string(a.Status),
		QueueToken:        a.QueueToken,
		CreatedAt:         a.CreatedAt,
	}
}

type PatientSummary struct {
	ID                  uuid.UUID `json:"id"`
	MedicalRecordNumber string    `json:"medical_record_number"`
	Name                string    `json:"name"`
}

type DoctorSummary struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Specialty *string   `json:"specialty,omitempty"`
}

type AppointmentDetailResponse struct {
	AppointmentResponse
	Patient *PatientSummary `json:"patient,omitempty"`
	Doctor  *DoctorSummary  `json:"doctor,omitempty"`
}

func toAppointmentDetailResponse(d *booking.AppointmentDetail) AppointmentDetailResponse {
	resp := AppointmentDetailResponse{
		AppointmentResponse: toAppointmentResponse(&d.Appointment),
	}
	if d.Patient != nil {
		resp.Patient = &PatientSummary{
			ID:                  d.Patient.ID,
			MedicalRecordNumber: d.Patient.MedicalRecordNumber,
			Name:                d.Patient.Name,
		}
	}
	if d.Doctor != nil {
		resp.Doctor = &DoctorSummary{
			ID:        d.Doctor.ID,
			Name:      d.Doctor.Name,
			Specialty: d.Doctor.Specialty,
		}
	}
	return resp
}

type PrescriptionItemRequest struct {
	MedicineID string `json:"medicine_id"`
	Quantity   int    `json:"quantity"`
	Dosage     string `json:"dosage,omitempty"`
}

type CreatePrescriptionRequest struct {
	PatientID     string                    `json:"patient_id"`
	DoctorID      string                    `json:"doctor_id"`
	AppointmentID string                    `json:"appointment_id,omitempty"`
	Items         []PrescriptionItemRequest `json:"items"`
}

type PrescriptionResponse struct {
	ID                 uuid.UUID  `json:"id"`
	PrescriptionNumber string     `json:"prescription_number"`
	PatientID          uuid.UUID  `json:"patient_id"`
	DoctorID           uuid.UUID  `json:"doctor_id"`
	Status             string     `json:"status"`
	DispensedAt        *time.Time `json:"dispensed_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

func toPrescriptionResponse(p *pharmacy.Prescription) PrescriptionResponse {
	return PrescriptionResponse{
		ID:                 p.ID,
		PrescriptionNumber: p.PrescriptionNumber,
		PatientID:          p.PatientID,
		DoctorID:           p.DoctorID,
		Status:             string(p.Status),
		DispensedAt:        p.DispensedAt,
		CreatedAt:          p.CreatedAt,
	}
}

type InvoiceItemRequest struct {
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

type CreateInvoiceRequest struct {
	PatientID     string               `json:"patient_id"`
	AppointmentID string               `json:"appointment_id,omitempty"`
	Items         []InvoiceItemRequest `json:"items"`
}

type PayInvoiceRequest struct {
	Method string `json:"method"`
}

type InvoiceResponse struct {
	ID            uuid.UUID  `json:"id"`
	InvoiceNumber string     `json:"invoice_number"`
	PatientID     uuid.UUID  `json:"patient_id"`
	TotalAmount   float64    `json:"total_amount"`
	Status        string     `json:"status"`
	PaymentMethod *string    `json:"payment_method,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toInvoiceResponse(inv *billing.Invoice) InvoiceResponse {
	return InvoiceResponse{
		ID:            inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		PatientID:     inv.PatientID,
		TotalAmount:   inv.TotalAmount,
		Status:        string(inv.Status),
		PaymentMethod: inv.PaymentMethod,
		PaidAt:        inv.PaidAt,
		CreatedAt:     inv.CreatedAt,
	}
}
