package api

import (
	"strings"
	"time"

	"github.com/platinummonkey/carebase/pkg/storage"
)

type registerRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Message   string    `json:"message"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type patientRequest struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	CPF       string `json:"cpf" validate:"required"`
	Disease   string `json:"disease"`
	// dd/mm/yyyy or yyyy-mm-dd
	BirthDate string `json:"birth_date" validate:"required"`
	storage.Address
}

func (req *patientRequest) toPatient() (*storage.Patient, error) {
	birthDate, err := storage.ParseDate(req.BirthDate)
	if err != nil {
		return nil, err
	}
	return &storage.Patient{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		CPF:       strings.TrimSpace(req.CPF),
		Disease:   req.Disease,
		BirthDate: birthDate,
		Address:   req.Address,
	}, nil
}

type guardianRequest struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	CPF       string `json:"cpf" validate:"required"`
	RG        string `json:"rg"`
	PatientID int64  `json:"patient_id" validate:"required,gt=0"`
	storage.Address
}

func (req *guardianRequest) toGuardian() *storage.Guardian {
	return &storage.Guardian{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		CPF:       strings.TrimSpace(req.CPF),
		RG:        req.RG,
		PatientID: req.PatientID,
		Address:   req.Address,
	}
}

// guardianUpdateRequest names the patient instead of carrying its id
type guardianUpdateRequest struct {
	FirstName   string `json:"first_name" validate:"required"`
	LastName    string `json:"last_name" validate:"required"`
	CPF         string `json:"cpf" validate:"required"`
	RG          string `json:"rg"`
	PatientName string `json:"patient_name" validate:"required"`
	storage.Address
}

// splitFullName splits on the first space: "Ana Maria Souza" is first name
// "Ana" and last name "Maria Souza".
func splitFullName(full string) (first, last string) {
	first, last, _ = strings.Cut(strings.TrimSpace(full), " ")
	return first, strings.TrimSpace(last)
}

type diseaseRequest struct {
	Name string `json:"name" validate:"required"`
}

type attendanceRequest struct {
	PatientID int64 `json:"patient_id" validate:"required,gt=0"`
}

type historyRequest struct {
	PatientID int64 `json:"patient_id" validate:"required,gt=0"`
	DiseaseID int64 `json:"disease_id" validate:"required,gt=0"`
}
