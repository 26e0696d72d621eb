package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/carebase/pkg/httputil"
	"github.com/platinummonkey/carebase/pkg/storage"
)

// DiseaseHandlers serves the disease catalogue
type DiseaseHandlers struct {
	store storage.DiseaseStore
}

func NewDiseaseHandlers(store storage.DiseaseStore) *DiseaseHandlers {
	return &DiseaseHandlers{store: store}
}

// RegisterRoutes registers disease routes
func (h *DiseaseHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/diseases", h.list).Methods("GET")
	router.HandleFunc("/diseases", h.create).Methods("POST")
	router.HandleFunc("/diseases/name/{name}", h.findByName).Methods("GET")
	router.HandleFunc("/diseases/{id:[0-9]+}", h.get).Methods("GET")
	router.HandleFunc("/diseases/{id:[0-9]+}", h.update).Methods("PUT")
	router.HandleFunc("/diseases/{id:[0-9]+}", h.delete).Methods("DELETE")
}

func (h *DiseaseHandlers) list(w http.ResponseWriter, r *http.Request) {
	diseases, err := h.store.List(r.Context())
	if err != nil {
		diseaseErrors.write(w, r, err)
		return
	}
	httputil.WriteSuccess(w, diseases)
}

func (h *DiseaseHandlers) findByName(w http.ResponseWriter, r *http.Request) {
	name, ok := httputil.ParsePathStringOrError(w, r, "name")
	if !ok {
		return
	}

	diseases, err := h.store.FindByName(r.Context(), name)
	if err != nil {
		diseaseErrors.write(w, r, err)
		return
	}
	httputil.WriteSuccess(w, diseases)
}

func (h *DiseaseHandlers) get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	disease, err := h.store.Get(r.Context(), id)
	if err != nil {
		diseaseErrors.write(w, r, err)
		return
	}
	httputil.WriteSuccess(w, disease)
}

func (h *DiseaseHandlers) create(w http.ResponseWriter, r *http.Request) {
	var req diseaseRequest
	if !httputil.ParseAndValidate(w, r, &req) {
		return
	}

	disease := &storage.Disease{Name: strings.TrimSpace(req.Name)}
	if err := h.store.Create(r.Context(), disease); err != nil {
		diseaseErrors.write(w, r, err)
		return
	}
	httputil.WriteCreated(w, disease)
}

func (h *DiseaseHandlers) update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req diseaseRequest
	if !httputil.ParseAndValidate(w, r, &req) {
		return
	}

	disease := &storage.Disease{ID: id, Name: strings.TrimSpace(req.Name)}
	if err := h.store.Update(r.Context(), disease); err != nil {
		diseaseErrors.write(w, r, err)
		return
	}
	httputil.WriteSuccess(w, disease)
}

// delete handles DELETE /diseases/{id}. History rows naming the disease go
// with it.
func (h *DiseaseHandlers) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		diseaseErrors.write(w, r, err)
		return
	}
	httputil.WriteOutcome(w, "disease deleted")
}
