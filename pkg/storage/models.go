package storage

import "time"

// User is an account that can log in
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Address fields shared by patients and guardians
type Address struct {
	Address  string `json:"address"`
	City     string `json:"city"`
	Number   string `json:"number"`
	State    string `json:"state"`
	ZipCode  string `json:"zip_code"`
	District string `json:"district"`
}

// Patient is a person under care
type Patient struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	CPF       string `json:"cpf"`
	Disease   string `json:"disease"`
	BirthDate Date   `json:"birth_date"`
	Address
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Guardians []Guardian `json:"guardians"`
}

// Guardian is the person responsible for a patient
type Guardian struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	CPF       string `json:"cpf"`
	RG        string `json:"rg"`
	PatientID int64  `json:"patient_id"`
	Address
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Populated by list, name and id lookups
	Patient *Patient `json:"patient,omitempty"`
}

// Disease is a catalogued condition
type Disease struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Attendance records a patient visit
type Attendance struct {
	ID        int64     `json:"id"`
	PatientID int64     `json:"patient_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HistoryEntry links a patient to a disease they have had
type HistoryEntry struct {
	ID          int64     `json:"id"`
	PatientID   int64     `json:"patient_id"`
	DiseaseID   int64     `json:"disease_id"`
	DiseaseName string    `json:"disease_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
