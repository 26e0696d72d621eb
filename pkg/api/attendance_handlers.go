package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/carebase/pkg/httputil"
	"github.com/platinummonkey/carebase/pkg/storage"
)

// AttendanceHandlers serves patient visits
type AttendanceHandlers struct {
	store storage.AttendanceStore
}

func NewAttendanceHandlers(store storage.AttendanceStore) *AttendanceHandlers {
	return &AttendanceHandlers{store: store}
}

// RegisterRoutes registers attendance routes
func (h *AttendanceHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/attendance", h.list).Methods("GET")
	router.HandleFunc("/attendance", h.create).Methods("POST")
	router.HandleFunc("/attendance/patient/{id:[0-9]+}", h.listByPatient).Methods("GET")
	router.HandleFunc("/attendance/{id:[0-9]+}", h.update).Methods("PUT")
	router.HandleFunc("/attendance/{id:[0-9]+}", h.delete).Methods("DELETE")
}

func (h *AttendanceHandlers) list(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.List(r.Context())
	if err != nil {
		attendanceErrors.write(w, r, err)
		return
	}
	httputil.WriteSuccess(w, rows)
}

func (h *AttendanceHandlers) listByPatient(w http.ResponseWriter, r *http.Request) {
	patientID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	rows, err := h.store.ListByPatient(r.Context(), patientID)
	if err != nil {
		attendanceErrors.write(w, r, err)
		return
	}
	httputil.WriteSuccess(w, rows)
}

func (h *AttendanceHandlers) create(w http.ResponseWriter, r *http.Request) {
	var req attendanceRequest
	if !httputil.ParseAndValidate(w, r, &req) {
		return
	}

	attendance := &storage.Attendance{PatientID: req.PatientID}
	if err := h.store.Create(r.Context(), attendance); err != nil {
		attendanceErrors.write(w, r, err)
		return
	}
	httputil.WriteCreated(w, attendance)
}

func (h *AttendanceHandlers) update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req attendanceRequest
	if !httputil.ParseAndValidate(w, r, &req) {
		return
	}

	attendance := &storage.Attendance{ID: id, PatientID: req.PatientID}
	if err := h.store.Update(r.Context(), attendance); err != nil {
		attendanceErrors.write(w, r, err)
		return
	}
	httputil.WriteSuccess(w, attendance)
}

func (h *AttendanceHandlers) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		attendanceErrors.write(w, r, err)
		return
	}
	httputil.WriteOutcome(w, "attendance deleted")
}
