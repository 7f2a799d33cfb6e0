package api

import (
	"github.com/clinicdesk/clinic-scheduling/internal/appointment"
)

type BookRequest struct {
	PatientID string `json:"patient_id"`
}

type PrescriptionPayload struct {
	Medicine string `json:"medicine"`
	Dosage   int    `json:"dosage"`
}

type OutcomeRequest struct {
	Notes         string                `json:"notes"`
	Prescriptions []PrescriptionPayload `json:"prescriptions"`
}

type EncounterRequest struct {
	PatientID     string                `json:"patient_id"`
	Notes         string                `json:"notes"`
	Prescriptions []PrescriptionPayload `json:"prescriptions"`
}

type PrescriptionResponse struct {
	Medicine string `json:"medicine"`
	Dosage   int    `json:"dosage,omitempty"`
	Status   string `json:"status"`
}

type AppointmentResponse struct {
	ID            string                 `json:"id"`
	DoctorID      string                 `json:"doctor_id"`
	PatientID     string                 `json:"patient_id,omitempty"`
	Slot          string                 `json:"slot"`
	Status        string                 `json:"status"`
	Available     bool                   `json:"available"`
	Notes         string                 `json:"notes,omitempty"`
	Prescriptions []PrescriptionResponse `json:"prescriptions,omitempty"`
}

type GenerateWeekResponse struct {
	Created int `json:"created"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	resp := AppointmentResponse{
		ID:        a.ID,
		DoctorID:  a.DoctorID,
		PatientID: a.PatientID,
		Slot:      a.Slot.String(),
		Status:    string(a.Status),
		Available: a.Available(),
		Notes:     a.Notes,
	}
	for _, p := range a.Prescriptions {
		resp.Prescriptions = append(resp.Prescriptions, PrescriptionResponse{
			Medicine: p.Medicine,
			Dosage:   p.Dosage,
			Status:   string(p.Status),
		})
	}
	return resp
}

func toAppointmentList(appts []*appointment.Appointment) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(appts))
	for _, a := range appts {
		out = append(out, toAppointmentResponse(a))
	}
	return out
}

func toPrescriptionRequests(payload []PrescriptionPayload) []appointment.PrescriptionRequest {
	out := make([]appointment.PrescriptionRequest, 0, len(payload))
	for _, p := range payload {
		out = append(out, appointment.PrescriptionRequest{Medicine: p.Medicine, Dosage: p.Dosage})
	}
	return out
}
