package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/Ja5on1in/gym-book-sub000/internal/booking"
)

type ServicePayload struct {
	Name    string `json:"name"`
	Minutes int    `json:"minutes,omitempty"`
}

type CustomerPayload struct {
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

type CreateBookingRequest struct {
	Type           string           `json:"type,omitempty"` // defaults to private
	Date           string           `json:"date"`
	Slot           string           `json:"slot"`
	CoachID        string           `json:"coach_id"`
	Service        *ServicePayload  `json:"service,omitempty"`
	Customer       *CustomerPayload `json:"customer,omitempty"`
	ExternalUserID string           `json:"external_user_id,omitempty"`
	Capacity       int              `json:"capacity,omitempty"`
}

type SaveBlockRequest struct {
	ID             string           `json:"id,omitempty"` // set when editing in place
	Type           string           `json:"type,omitempty"`
	Date           string           `json:"date"`
	Slot           string           `json:"slot"`
	EndSlot        string           `json:"end_slot,omitempty"`
	CoachID        string           `json:"coach_id"`
	Reason         string           `json:"reason,omitempty"`
	Service        *ServicePayload  `json:"service,omitempty"`
	Customer       *CustomerPayload `json:"customer,omitempty"`
	ExternalUserID string           `json:"external_user_id,omitempty"`
	Capacity       int              `json:"capacity,omitempty"`
	Batch          bool             `json:"batch,omitempty"`
	RepeatWeeks    int              `json:"repeat_weeks,omitempty"`
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

type CancelBatchRequest struct {
	IDs    []string `json:"ids"`
	Reason string   `json:"reason"`
}

type AdjustRequest struct {
	Field string `json:"field"` // private or group
	Delta int    `json:"delta"`
}

type SetBalanceRequest struct {
	Field string `json:"field"`
	Value int    `json:"value"`
}

type AppointmentResponse struct {
	ID             uuid.UUID        `json:"id"`
	Type           string           `json:"type"`
	Date           string           `json:"date"`
	Slot           string           `json:"slot"`
	CoachID        uuid.UUID        `json:"coach_id"`
	Service        *ServicePayload  `json:"service,omitempty"`
	Customer       *CustomerPayload `json:"customer,omitempty"`
	Reason         string           `json:"reason,omitempty"`
	Capacity       int              `json:"capacity,omitempty"`
	Status         string           `json:"status"`
	CancelReason   string           `json:"cancel_reason,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	Warning        string           `json:"warning,omitempty"`
}

type SlotRefResponse struct {
	Date string `json:"date"`
	Slot string `json:"slot"`
}

type BlockResultResponse struct {
	Created int               `json:"created"`
	Skipped []SlotRefResponse `json:"skipped,omitempty"`
	Warning string            `json:"warning,omitempty"`
}

type CancelBatchResponse struct {
	Cancelled int `json:"cancelled"`
}

type AccountResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Phone          string    `json:"phone,omitempty"`
	ExternalUserID string    `json:"external_user_id,omitempty"`
	PrivateCredits int       `json:"private_credits"`
	GroupCredits   int       `json:"group_credits"`
	LastUpdated    time.Time `json:"last_updated"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func appointmentResponse(a *booking.Appointment, warning string) AppointmentResponse {
	resp := AppointmentResponse{
		ID:           a.ID,
		Type:         string(a.Type),
		Date:         a.Date,
		Slot:         a.Slot,
		CoachID:      a.CoachID,
		Reason:       a.Reason,
		Capacity:     a.Capacity,
		Status:       string(a.Status),
		CancelReason: a.CancelReason,
		CreatedAt:    a.CreatedAt,
		Warning:      warning,
	}
	if a.Service != nil {
		resp.Service = &ServicePayload{Name: a.Service.Name, Minutes: a.Service.Minutes}
	}
	if a.Customer != nil {
		resp.Customer = &CustomerPayload{Name: a.Customer.Name, Phone: a.Customer.Phone, Email: a.Customer.Email}
	}
	return resp
}
