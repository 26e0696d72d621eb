package api

import (
	"errors"
	"net/http"

	"github.com/platinummonkey/carebase/pkg/httputil"
	"github.com/platinummonkey/carebase/pkg/storage"
)

// resourceErrors maps storage error kinds to client messages for one resource
type resourceErrors struct {
	entity string
	// message for storage.ErrInvalidReference
	reference string
	// message for storage.ErrInUse
	inUse string
}

var (
	patientErrors = resourceErrors{
		entity: "patient",
		inUse:  "patient cannot be deleted while referenced",
	}
	guardianErrors = resourceErrors{
		entity:    "guardian",
		reference: "patient not found",
	}
	diseaseErrors = resourceErrors{
		entity: "disease",
	}
	attendanceErrors = resourceErrors{
		entity:    "attendance",
		reference: "patient not found",
	}
	historyErrors = resourceErrors{
		entity:    "history",
		reference: "patient or disease not found",
	}
)

// write answers err with the status of its kind. Unknown errors are logged
// and answered 500.
func (e resourceErrors) write(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		httputil.WriteNotFoundError(w, e.entity+" not found")
	case errors.Is(err, storage.ErrAlreadyExists):
		httputil.WriteConflict(w, e.entity+" already exists")
	case errors.Is(err, storage.ErrInvalidReference):
		msg := e.reference
		if msg == "" {
			msg = "referenced record not found"
		}
		httputil.WriteBadRequest(w, msg)
	case errors.Is(err, storage.ErrInUse):
		msg := e.inUse
		if msg == "" {
			msg = e.entity + " is still referenced"
		}
		httputil.WriteRefused(w, http.StatusConflict, msg)
	default:
		httputil.WriteInternalError(w, r, err)
	}
}
