package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/careops/hospital-ops/internal/billing"
)

func createInvoiceHandler(svc *billing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateInvoiceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
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

		items := make([]billing.InvoiceItem, 0, len(req.Items))
		for _, it := range req.Items {
			if it.Description == "" {
				writeError(w, http.StatusBadRequest, "invalid_item", "item description is required")
				return
			}
			items = append(items, billing.InvoiceItem{
				Description: it.Description,
				Quantity:    it.Quantity,
				UnitPrice:   it.UnitPrice,
			})
		}

		detail, err := svc.CreateInvoice(r.Context(), patientID, appointmentID, items)
		if err != nil {
			handleBillingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toInvoiceResponse(&detail.Invoice))
	}
}

func payInvoiceHandler(svc *billing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_invoice_id", "id must be a valid UUID")
			return
		}

		var req PayInvoiceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.Method == "" {
			req.Method = "cash"
		}

		inv, err := svc.Pay(r.Context(), id, req.Method)
		if err != nil {
			handleBillingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toInvoiceResponse(inv))
	}
}

func cancelInvoiceHandler(svc *billing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_invoice_id", "id must be a valid UUID")
			return
		}

		inv, err := svc.CancelInvoice(r.Context(), id)
		if err != nil {
			handleBillingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toInvoiceResponse(inv))
	}
}

func getInvoiceHandler(svc *billing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_invoice_id", "id must be a valid UUID")
			return
		}

		detail, err := svc.GetInvoice(r.Context(), id)
		if err != nil {
			handleBillingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toInvoiceResponse(&detail.Invoice))
	}
}

func handleBillingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, billing.ErrInvoiceNotFound):
		writeError(w, http.StatusNotFound, "invoice_not_found", err.Error())
	case errors.Is(err, billing.ErrInvoiceAlreadyPaid):
		writeError(w, http.StatusConflict, "invoice_already_paid", err.Error())
	case errors.Is(err, billing.ErrInvoiceCancelled):
		writeError(w, http.StatusConflict, "invoice_cancelled", err.Error())
	case errors.Is(err, billing.ErrNoInvoiceItems):
		writeError(w, http.StatusBadRequest, "no_line_items", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
