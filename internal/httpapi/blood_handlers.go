package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"bloodbridge.org/internal/auth"
	"bloodbridge.org/internal/store"
)

var knownBloodTypes = map[string]struct{}{
	"A+": {}, "A-": {}, "B+": {}, "B-": {},
	"AB+": {}, "AB-": {}, "O+": {}, "O-": {},
}

type bloodRequestPayload struct {
	ID          string    `json:"id"`
	RequesterID string    `json:"requesterId"`
	BloodType   string    `json:"bloodType"`
	Units       int       `json:"units"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toBloodRequestPayload(r *store.BloodRequest) bloodRequestPayload {
	return bloodRequestPayload{
		ID:          r.ID,
		RequesterID: r.RequesterID,
		BloodType:   r.BloodType,
		Units:       r.Units,
		Status:      r.Status,
		CreatedAt:   r.CreatedAt,
	}
}

type createBloodRequestBody struct {
	BloodType string `json:"bloodType"`
	Units     int    `json:"units"`
}

func (a *API) handleCreateBloodRequest(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	var req createBloodRequestBody
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	req.BloodType = strings.ToUpper(strings.TrimSpace(req.BloodType))
	if _, ok := knownBloodTypes[req.BloodType]; !ok {
		writeError(w, http.StatusBadRequest, codeBadRequest, "unknown blood type")
		return
	}
	if req.Units <= 0 || req.Units > 100 {
		writeError(w, http.StatusBadRequest, codeBadRequest, "units must be between 1 and 100")
		return
	}

	record := &store.BloodRequest{
		RequesterID: identity.UserID,
		BloodType:   req.BloodType,
		Units:       req.Units,
		Status:      store.RequestStatusOpen,
	}
	if err := a.records.BloodRequests().Create(r.Context(), record); err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "could not create blood request")
		return
	}
	writeJSON(w, http.StatusCreated, toBloodRequestPayload(record))
}

func (a *API) handleListBloodRequests(w http.ResponseWriter, r *http.Request) {
	records, err := a.records.BloodRequests().List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "could not list blood requests")
		return
	}
	items := make([]bloodRequestPayload, 0, len(records))
	for _, rec := range records {
		items = append(items, toBloodRequestPayload(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (a *API) handleDeleteBloodRequest(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if strings.TrimSpace(id) == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "request id is required")
		return
	}
	if err := a.records.BloodRequests().Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, codeNotFound, "blood request not found")
			return
		}
		writeError(w, http.StatusInternalServerError, codeInternal, "could not delete blood request")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.records.Users().List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "could not list users")
		return
	}
	items := make([]userPayload, 0, len(users))
	for _, u := range users {
		items = append(items, userPayload{ID: u.ID, Email: u.Email, Role: string(u.Role)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (a *API) handleReportSummary(w http.ResponseWriter, r *http.Request) {
	counts, err := a.records.BloodRequests().CountByStatus(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "could not build report")
		return
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"requestsByStatus": counts,
		"totalRequests":    total,
	})
}
