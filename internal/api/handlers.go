package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Ja5on1in/gym-book-sub000/internal/booking"
	"github.com/Ja5on1in/gym-book-sub000/internal/ledger"
	redisclient "github.com/Ja5on1in/gym-book-sub000/internal/redis"
	"github.com/Ja5on1in/gym-book-sub000/internal/schedule"
)

func createBookingHandler(svc *booking.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		coachID, err := uuid.Parse(req.CoachID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_coach_id", "coach_id must be a valid UUID")
			return
		}

		appt, warning, err := svc.CreateBooking(r.Context(), booking.BookingRequest{
			Type:           booking.Type(req.Type),
			Date:           req.Date,
			Slot:           req.Slot,
			CoachID:        coachID,
			Service:        servicePayload(req.Service),
			Customer:       customerPayload(req.Customer),
			ExternalUserID: req.ExternalUserID,
			Capacity:       req.Capacity,
		}, ActorFrom(r.Context()))
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, appointmentResponse(appt, warning))
	}
}

func saveBlockHandler(svc *booking.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SaveBlockRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		coachID, err := uuid.Parse(req.CoachID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_coach_id", "coach_id must be a valid UUID")
			return
		}

		formID := uuid.Nil
		if req.ID != "" {
			formID, err = uuid.Parse(req.ID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_block_id", "id must be a valid UUID")
				return
			}
		}

		result, err := svc.SaveBlock(r.Context(), booking.BlockForm{
			ID:             formID,
			Type:           booking.Type(req.Type),
			Date:           req.Date,
			Slot:           req.Slot,
			EndSlot:        req.EndSlot,
			CoachID:        coachID,
			Reason:         req.Reason,
			Service:        servicePayload(req.Service),
			Customer:       customerPayload(req.Customer),
			ExternalUserID: req.ExternalUserID,
			Capacity:       req.Capacity,
		}, req.Batch, req.RepeatWeeks, ActorFrom(r.Context()))
		if err != nil {
			handleDomainError(w, err)
			return
		}

		resp := BlockResultResponse{Created: result.Created, Warning: result.Warning}
		for _, ref := range result.Skipped {
			resp.Skipped = append(resp.Skipped, SlotRefResponse{Date: ref.Date, Slot: ref.Slot})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func checkInHandler(svc *booking.Lifecycle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}

		appt, err := svc.CheckIn(r.Context(), id, ActorFrom(r.Context()))
		if err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, appointmentResponse(appt, ""))
	}
}

func completeHandler(svc *booking.Lifecycle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}

		appt, warning, err := svc.Complete(r.Context(), id, ActorFrom(r.Context()))
		if err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, appointmentResponse(appt, warning))
	}
}

func reverseHandler(svc *booking.Lifecycle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}

		appt, err := svc.Reverse(r.Context(), id, ActorFrom(r.Context()))
		if err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, appointmentResponse(appt, ""))
	}
}

func cancelHandler(svc *booking.Lifecycle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}

		var req CancelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.Cancel(r.Context(), id, req.Reason, ActorFrom(r.Context()))
		if err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, appointmentResponse(appt, ""))
	}
}

func cancelBatchHandler(svc *booking.Lifecycle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CancelBatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		ids := make([]uuid.UUID, 0, len(req.IDs))
		for _, raw := range req.IDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_appointment_id", "ids must be valid UUIDs")
				return
			}
			ids = append(ids, id)
		}

		count, err := svc.CancelBatch(r.Context(), ids, req.Reason, ActorFrom(r.Context()))
		if err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, CancelBatchResponse{Cancelled: count})
	}
}

func deleteAppointmentHandler(svc *booking.Lifecycle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}

		if err := svc.Delete(r.Context(), id, ActorFrom(r.Context())); err != nil {
			handleDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func coachScheduleHandler(repo booking.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		coachID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_coach_id", "id must be a valid UUID")
			return
		}
		date := r.URL.Query().Get("date")
		if date == "" {
			writeError(w, http.StatusBadRequest, "missing_date", "date query parameter is required")
			return
		}

		appts, err := repo.ListActiveForDay(r.Context(), coachID, date)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		resp := make([]AppointmentResponse, 0, len(appts))
		for i := range appts {
			resp = append(resp, appointmentResponse(&appts[i], ""))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func getAccountHandler(svc *ledger.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_account_id", "id must be a valid UUID")
			return
		}

		acct, err := svc.Get(r.Context(), id)
		if err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, accountResponse(acct))
	}
}

func adjustAccountHandler(svc *ledger.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_account_id", "id must be a valid UUID")
			return
		}

		actor := ActorFrom(r.Context())
		if !actor.IsStaff() {
			writeError(w, http.StatusForbidden, "role_forbidden", "staff role required")
			return
		}

		var req AdjustRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		acct, err := svc.Adjust(r.Context(), id, ledger.Field(req.Field), req.Delta, actor.Label())
		if err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, accountResponse(acct))
	}
}

func setBalanceHandler(svc *ledger.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_account_id", "id must be a valid UUID")
			return
		}

		actor := ActorFrom(r.Context())
		if !actor.IsStaff() {
			writeError(w, http.StatusForbidden, "role_forbidden", "staff role required")
			return
		}

		var req SetBalanceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		acct, err := svc.SetBalance(r.Context(), id, ledger.Field(req.Field), req.Value, actor.Label())
		if err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, accountResponse(acct))
	}
}

// handleDomainError maps domain sentinels onto distinct, actionable error
// codes; a conflicted slot, a day off and a forbidden role must never look
// like the same generic failure to the person acting.
func handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrCoachNotFound):
		writeError(w, http.StatusNotFound, "coach_not_found", err.Error())
	case errors.Is(err, booking.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, ledger.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, "account_not_found", err.Error())
	case errors.Is(err, schedule.ErrUnknownSlot):
		writeError(w, http.StatusBadRequest, "unknown_slot", err.Error())
	case errors.Is(err, booking.ErrBadDate):
		writeError(w, http.StatusBadRequest, "bad_date", err.Error())
	case errors.Is(err, ledger.ErrBadField):
		writeError(w, http.StatusBadRequest, "bad_field", err.Error())
	case errors.Is(err, booking.ErrDayOff):
		writeError(w, http.StatusConflict, "day_off", err.Error())
	case errors.Is(err, booking.ErrOutsideHours):
		writeError(w, http.StatusConflict, "outside_hours", err.Error())
	case errors.Is(err, booking.ErrSlotConflict):
		writeError(w, http.StatusConflict, "slot_conflict", err.Error())
	case errors.Is(err, booking.ErrSlotBeingBooked),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	case errors.Is(err, booking.ErrNoValidSlots):
		writeError(w, http.StatusConflict, "no_valid_slots", err.Error())
	case errors.Is(err, booking.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, booking.ErrProtectedStatus):
		writeError(w, http.StatusConflict, "protected_status", err.Error())
	case errors.Is(err, booking.ErrCancelCompleted):
		writeError(w, http.StatusConflict, "use_reversal", err.Error())
	case errors.Is(err, booking.ErrRoleForbidden):
		writeError(w, http.StatusForbidden, "role_forbidden", err.Error())
	case errors.Is(err, booking.ErrIdentityMismatch):
		writeError(w, http.StatusForbidden, "identity_mismatch", err.Error())
	case errors.Is(err, booking.ErrCancelWindow):
		writeError(w, http.StatusForbidden, "cancel_window", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func servicePayload(p *ServicePayload) *booking.Service {
	if p == nil {
		return nil
	}
	return &booking.Service{Name: p.Name, Minutes: p.Minutes}
}

func customerPayload(p *CustomerPayload) *booking.Customer {
	if p == nil {
		return nil
	}
	return &booking.Customer{Name: p.Name, Phone: p.Phone, Email: p.Email}
}

func accountResponse(a *ledger.Account) AccountResponse {
	return AccountResponse{
		ID:             a.ID,
		Name:           a.Name,
		Phone:          a.Phone,
		ExternalUserID: a.ExternalUserID,
		PrivateCredits: a.PrivateCredits,
		GroupCredits:   a.GroupCredits,
		LastUpdated:    a.LastUpdated,
	}
}
