package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/carebase/pkg/httputil"
	"github.com/platinummonkey/carebase/pkg/storage"
)

// HistoryHandlers serves the disease history of patients
type HistoryHandlers struct {
	store    storage.HistoryStore
	patients storage.PatientStore
}

func NewHistoryHandlers(store storage.HistoryStore, patients storage.PatientStore) *HistoryHandlers {
	return &HistoryHandlers{store: store, patients: patients}
}

// RegisterRoutes registers history routes
func (h *HistoryHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/history", h.create).Methods("POST")
	router.HandleFunc("/history/patient/{id:[0-9]+}", h.listByPatient).Methods("GET")
	router.HandleFunc("/history/patient/{id:[0-9]+}", h.deleteByPatient).Methods("DELETE")
}

func (h *HistoryHandlers) listByPatient(w http.ResponseWriter, r *http.Request) {
	patientID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	entries, err := h.store.ListByPatient(r.Context(), patientID)
	if err != nil {
		historyErrors.write(w, r, err)
		return
	}
	httputil.WriteSuccess(w, entries)
}

func (h *HistoryHandlers) create(w http.ResponseWriter, r *http.Request) {
	var req historyRequest
	if !httputil.ParseAndValidate(w, r, &req) {
		return
	}

	entry := &storage.HistoryEntry{PatientID: req.PatientID, DiseaseID: req.DiseaseID}
	if err := h.store.Create(r.Context(), entry); err != nil {
		historyErrors.write(w, r, err)
		return
	}
	httputil.WriteCreated(w, entry)
}

// deleteByPatient handles DELETE /history/patient/{id}
func (h *HistoryHandlers) deleteByPatient(w http.ResponseWriter, r *http.Request) {
	patientID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	patient, err := h.patients.Get(r.Context(), patientID)
	if err != nil {
		patientErrors.write(w, r, err)
		return
	}

	if _, err := h.store.DeleteByPatient(r.Context(), patientID); err != nil {
		historyErrors.write(w, r, err)
		return
	}
	httputil.WriteOutcome(w, "history of "+patient.FirstName+" deleted")
}
