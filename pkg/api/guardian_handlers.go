package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/carebase/pkg/httputil"
	"github.com/platinummonkey/carebase/pkg/storage"
)

// GuardianHandlers serves /guardians
type GuardianHandlers struct {
	store    storage.GuardianStore
	patients storage.PatientStore
}

// NewGuardianHandlers creates guardian handlers. patients resolves the
// patient named by an update.
func NewGuardianHandlers(store storage.GuardianStore, patients storage.PatientStore) *GuardianHandlers {
	return &GuardianHandlers{store: store, patients: patients}
}

// RegisterRoutes registers guardian routes
func (h *GuardianHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/guardians", h.list).Methods("GET")
	router.HandleFunc("/guardians", h.create).Methods("POST")
	router.HandleFunc("/guardians/name/{name}", h.findByName).Methods("GET")
	router.HandleFunc("/guardians/{id:[0-9]+}", h.get).Methods("GET")
	router.HandleFunc("/guardians/{id:[0-9]+}", h.update).Methods("PUT")
	router.HandleFunc("/guardians/{id:[0-9]+}", h.delete).Methods("DELETE")
}

func (h *GuardianHandlers) list(w http.ResponseWriter, r *http.Request) {
	guardians, err := h.store.List(r.Context())
	if err != nil {
		guardianErrors.write(w, r, err)
		return
	}
	httputil.WriteSuccess(w, guardians)
}

func (h *GuardianHandlers) findByName(w http.ResponseWriter, r *http.Request) {
	name, ok := httputil.ParsePathStringOrError(w, r, "name")
	if !ok {
		return
	}

	guardians, err := h.store.FindByFirstName(r.Context(), name)
	if err != nil {
		guardianErrors.write(w, r, err)
		return
	}
	httputil.WriteSuccess(w, guardians)
}

func (h *GuardianHandlers) get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	guardian, err := h.store.Get(r.Context(), id)
	if err != nil {
		guardianErrors.write(w, r, err)
		return
	}
	httputil.WriteSuccess(w, guardian)
}

func (h *GuardianHandlers) create(w http.ResponseWriter, r *http.Request) {
	var req guardianRequest
	if !httputil.ParseAndValidate(w, r, &req) {
		return
	}

	guardian := req.toGuardian()
	if err := h.store.Create(r.Context(), guardian); err != nil {
		guardianErrors.write(w, r, err)
		return
	}
	httputil.WriteCreated(w, guardian)
}

// update handles PUT /guardians/{id}. The body names the patient as
// "First Last" rather than by id.
func (h *GuardianHandlers) update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req guardianUpdateRequest
	if !httputil.ParseAndValidate(w, r, &req) {
		return
	}

	first, last := splitFullName(req.PatientName)
	patient, err := h.patients.FindByFullName(r.Context(), first, last)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httputil.WriteBadRequest(w, "patient not found")
			return
		}
		httputil.WriteInternalError(w, r, err)
		return
	}

	guardian := (&guardianRequest{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		CPF:       req.CPF,
		RG:        req.RG,
		PatientID: patient.ID,
		Address:   req.Address,
	}).toGuardian()
	guardian.ID = id

	if err := h.store.Update(r.Context(), guardian); err != nil {
		guardianErrors.write(w, r, err)
		return
	}
	guardian.Patient = patient
	httputil.WriteSuccess(w, guardian)
}

func (h *GuardianHandlers) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	guardian, err := h.store.Delete(r.Context(), id)
	if err != nil {
		guardianErrors.write(w, r, err)
		return
	}
	httputil.WriteOutcome(w, guardian.FirstName+" deleted")
}
