package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clinicdesk/clinic-scheduling/internal/appointment"
	"github.com/clinicdesk/clinic-scheduling/internal/directory"
	"github.com/clinicdesk/clinic-scheduling/internal/inventory"
)

func generateWeekHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID := chi.URLParam(r, "doctorID")

		created, err := svc.GenerateWeek(r.Context(), doctorID)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, GenerateWeekResponse{Created: created})
	}
}

func doctorAppointmentsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID := chi.URLParam(r, "doctorID")

		statuses, ok := statusFilter(w, r)
		if !ok {
			return
		}

		appts, err := svc.DoctorAppointments(r.Context(), doctorID, statuses...)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentList(appts))
	}
}

func patientAppointmentsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID := chi.URLParam(r, "patientID")

		statuses, ok := statusFilter(w, r)
		if !ok {
			return
		}

		appts, err := svc.PatientAppointments(r.Context(), patientID, statuses...)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentList(appts))
	}
}

func getAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appt, err := svc.Appointment(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func bookAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.PatientID == "" {
			writeError(w, http.StatusBadRequest, "missing_patient_id", "patient_id is required")
			return
		}

		appt, err := svc.Book(r.Context(), chi.URLParam(r, "id"), req.PatientID)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func cancelAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appt, err := svc.Cancel(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func blockAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appt, err := svc.Block(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func unblockAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appt, err := svc.Unblock(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func recordOutcomeHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req OutcomeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.RecordOutcome(r.Context(), chi.URLParam(r, "id"), req.Notes, toPrescriptionRequests(req.Prescriptions))
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func recordEncounterHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req EncounterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.PatientID == "" {
			writeError(w, http.StatusBadRequest, "missing_patient_id", "patient_id is required")
			return
		}

		appt, err := svc.RecordEncounter(r.Context(), chi.URLParam(r, "doctorID"), req.PatientID, req.Notes, toPrescriptionRequests(req.Prescriptions))
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func dispensePrescriptionHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appt, err := svc.Dispense(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "medicine"))
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

// statusFilter parses the optional ?status= query parameter. On a bad token
// it writes a 400 and reports false.
func statusFilter(w http.ResponseWriter, r *http.Request) ([]appointment.Status, bool) {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		return nil, true
	}

	st, err := appointment.ParseStatus(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_status", err.Error())
		return nil, false
	}
	return []appointment.Status{st}, true
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, directory.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, directory.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, inventory.ErrMedicineNotFound):
		writeError(w, http.StatusNotFound, "medicine_not_found", err.Error())
	case errors.Is(err, inventory.ErrOutOfStock):
		writeError(w, http.StatusConflict, "medicine_out_of_stock", err.Error())
	case errors.Is(err, appointment.ErrConflict):
		writeError(w, http.StatusConflict, "state_conflict", err.Error())
	case errors.Is(err, appointment.ErrInvalidState):
		writeError(w, http.StatusConflict, "invalid_state", err.Error())
	case errors.Is(err, appointment.ErrNotPersisted):
		// The mutation stuck in memory but the file write failed; the caller
		// must treat it as a durability risk.
		writeError(w, http.StatusInternalServerError, "persistence_failed", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}
