package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/carebase/pkg/httputil"
	"github.com/platinummonkey/carebase/pkg/storage"
)

// PatientHandlers serves /patients
type PatientHandlers struct {
	store storage.PatientStore
}

// NewPatientHandlers creates patient handlers backed by store
func NewPatientHandlers(store storage.PatientStore) *PatientHandlers {
	return &PatientHandlers{store: store}
}

// RegisterRoutes registers patient routes
func (h *PatientHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/patients", h.list).Methods("GET")
	router.HandleFunc("/patients", h.create).Methods("POST")
	router.HandleFunc("/patients/name/{name}", h.findByName).Methods("GET")
	router.HandleFunc("/patients/{id:[0-9]+}", h.get).Methods("GET")
	router.HandleFunc("/patients/{id:[0-9]+}", h.update).Methods("PUT")
	router.HandleFunc("/patients/{id:[0-9]+}", h.delete).Methods("DELETE")
}

// list handles GET /patients
func (h *PatientHandlers) list(w http.ResponseWriter, r *http.Request) {
	patients, err := h.store.List(r.Context())
	if err != nil {
		patientErrors.write(w, r, err)
		return
	}
	httputil.WriteSuccess(w, patients)
}

// findByName handles GET /patients/name/{name}
func (h *PatientHandlers) findByName(w http.ResponseWriter, r *http.Request) {
	name, ok := httputil.ParsePathStringOrError(w, r, "name")
	if !ok {
		return
	}

	patients, err := h.store.FindByFirstName(r.Context(), name)
	if err != nil {
		patientErrors.write(w, r, err)
		return
	}
	httputil.WriteSuccess(w, patients)
}

// get handles GET /patients/{id}
func (h *PatientHandlers) get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	patient, err := h.store.Get(r.Context(), id)
	if err != nil {
		patientErrors.write(w, r, err)
		return
	}
	httputil.WriteSuccess(w, patient)
}

// create handles POST /patients
func (h *PatientHandlers) create(w http.ResponseWriter, r *http.Request) {
	var req patientRequest
	if !httputil.ParseAndValidate(w, r, &req) {
		return
	}

	patient, err := req.toPatient()
	if err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}

	if err := h.store.Create(r.Context(), patient); err != nil {
		patientErrors.write(w, r, err)
		return
	}
	patient.Guardians = []storage.Guardian{}
	httputil.WriteCreated(w, patient)
}

// update handles PUT /patients/{id}
func (h *PatientHandlers) update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req patientRequest
	if !httputil.ParseAndValidate(w, r, &req) {
		return
	}

	patient, err := req.toPatient()
	if err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}
	patient.ID = id

	if err := h.store.Update(r.Context(), patient); err != nil {
		patientErrors.write(w, r, err)
		return
	}

	updated, err := h.store.Get(r.Context(), id)
	if err != nil {
		patientErrors.write(w, r, err)
		return
	}
	httputil.WriteSuccess(w, updated)
}

// delete handles DELETE /patients/{id}
func (h *PatientHandlers) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	patient, err := h.store.Delete(r.Context(), id)
	if err != nil {
		patientErrors.write(w, r, err)
		return
	}
	httputil.WriteOutcome(w, patient.FirstName+" deleted")
}
