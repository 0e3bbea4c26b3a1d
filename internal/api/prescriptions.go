package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/careops/hospital-ops/internal/pharmacy"
)

func createPrescriptionHandler(svc *pharmacy.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreatePrescriptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}

		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}

		var appointmentID *uuid.UUID
		if req.AppointmentID != "" {
			id, err := uuid.Parse(req.AppointmentID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointment_id must be a valid UUID")
				return
			}
			appointmentID = &id
		}

		items := make([]pharmacy.PrescriptionItem, 0, len(req.Items))
		for _, it := range req.Items {
			medicineID, err := uuid.Parse(it.MedicineID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_medicine_id", "medicine_id must be a valid UUID")
				return
			}
			if it.Quantity <= 0 {
				writeError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be positive")
				return
			}
			items = append(items, pharmacy.PrescriptionItem{
				MedicineID: medicineID,
				Quantity:   it.Quantity,
				Dosage:     it.Dosage,
			})
		}

		detail, err := svc.CreatePrescription(r.Context(), patientID, doctorID, appointmentID, items)
		if err != nil {
			handlePharmacyError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toPrescriptionResponse(&detail.Prescription))
	}
}

func dispensePrescriptionHandler(svc *pharmacy.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_prescription_id", "id must be a valid UUID")
			return
		}

		p, err := svc.Dispense(r.Context(), id)
		if err != nil {
			handlePharmacyError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toPrescriptionResponse(p))
	}
}

func cancelPrescriptionHandler(svc *pharmacy.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_prescription_id", "id must be a valid UUID")
			return
		}

		p, err := svc.CancelPrescription(r.Context(), id)
		if err != nil {
			handlePharmacyError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toPrescriptionResponse(p))
	}
}

func handlePharmacyError(w http.ResponseWriter, err error) {
	var stockErr *pharmacy.InsufficientStockError

	switch {
	case errors.Is(err, pharmacy.ErrPrescriptionNotFound):
		writeError(w, http.StatusNotFound, "prescription_not_found", err.Error())
	case errors.Is(err, pharmacy.ErrMedicineNotFound):
		writeError(w, http.StatusConflict, "medicine_not_found", err.Error())
	case errors.Is(err, pharmacy.ErrAlreadyDispensed):
		writeError(w, http.StatusConflict, "already_dispensed", err.Error())
	case errors.Is(err, pharmacy.ErrPrescriptionCancelled):
		writeError(w, http.StatusConflict, "prescription_cancelled", err.Error())
	case errors.As(err, &stockErr):
		writeError(w, http.StatusConflict, "insufficient_stock", stockErr.Error())
	case errors.Is(err, pharmacy.ErrNoLineItems):
		writeError(w, http.StatusBadRequest, "no_line_items", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
