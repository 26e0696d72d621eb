package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/carebase/pkg/auth"
	"github.com/platinummonkey/carebase/pkg/storage"
)

type memUsers struct {
	mu     sync.Mutex
	users  map[int64]*storage.User
	nextID int64
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*storage.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *memUsers) FindByID(_ context.Context, id int64) (*storage.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (m *memUsers) Create(_ context.Context, user *storage.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	user.ID = m.nextID
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

// memPatients is a PatientStore over a map. referenced marks ids that
// Delete must refuse.
type memPatients struct {
	mu         sync.Mutex
	rows       map[int64]*storage.Patient
	nextID     int64
	referenced map[int64]bool
	err        error
}

func newMemPatients() *memPatients {
	return &memPatients{rows: make(map[int64]*storage.Patient), referenced: make(map[int64]bool)}
}

func (m *memPatients) sorted(match func(*storage.Patient) bool) []*storage.Patient {
	out := []*storage.Patient{}
	for _, p := range m.rows {
		if match(p) {
			copied := *p
			if copied.Guardians == nil {
				copied.Guardians = []storage.Guardian{}
			}
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memPatients) List(context.Context) ([]*storage.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.sorted(func(*storage.Patient) bool { return true }), nil
}

func (m *memPatients) FindByFirstName(_ context.Context, name string) ([]*storage.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(func(p *storage.Patient) bool { return p.FirstName == name }), nil
}

func (m *memPatients) FindByFullName(_ context.Context, first, last string) (*storage.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	found := m.sorted(func(p *storage.Patient) bool { return p.FirstName == first && p.LastName == last })
	if len(found) == 0 {
		return nil, storage.ErrNotFound
	}
	return found[0], nil
}

func (m *memPatients) Get(_ context.Context, id int64) (*storage.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	found := m.sorted(func(p *storage.Patient) bool { return p.ID == id })
	if len(found) == 0 {
		return nil, storage.ErrNotFound
	}
	return found[0], nil
}

func (m *memPatients) Create(_ context.Context, patient *storage.Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.rows {
		if p.CPF == patient.CPF {
			return storage.ErrAlreadyExists
		}
	}
	m.nextID++
	patient.ID = m.nextID
	patient.CreatedAt = time.Now()
	patient.UpdatedAt = patient.CreatedAt
	copied := *patient
	m.rows[patient.ID] = &copied
	return nil
}

func (m *memPatients) Update(_ context.Context, patient *storage.Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[patient.ID]; !ok {
		return storage.ErrNotFound
	}
	copied := *patient
	m.rows[patient.ID] = &copied
	return nil
}

func (m *memPatients) Delete(_ context.Context, id int64) (*storage.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if m.referenced[id] {
		return nil, storage.ErrInUse
	}
	delete(m.rows, id)
	return p, nil
}

type memGuardians struct {
	mu       sync.Mutex
	rows     map[int64]*storage.Guardian
	nextID   int64
	patients *memPatients
}

func (m *memGuardians) patientExists(id int64) bool {
	m.patients.mu.Lock()
	defer m.patients.mu.Unlock()
	_, ok := m.patients.rows[id]
	return ok
}

func (m *memGuardians) List(context.Context) ([]*storage.Guardian, error) {
	return m.FindByFirstName(context.Background(), "")
}

func (m *memGuardians) FindByFirstName(_ context.Context, name string) ([]*storage.Guardian, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*storage.Guardian{}
	for _, g := range m.rows {
		if name == "" || g.FirstName == name {
			copied := *g
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memGuardians) Get(_ context.Context, id int64) (*storage.Guardian, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.rows[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *g
	return &copied, nil
}

func (m *memGuardians) Create(_ context.Context, guardian *storage.Guardian) error {
	if !m.patientExists(guardian.PatientID) {
		return storage.ErrInvalidReference
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.rows {
		if g.CPF == guardian.CPF {
			return storage.ErrAlreadyExists
		}
	}
	m.nextID++
	guardian.ID = m.nextID
	copied := *guardian
	m.rows[guardian.ID] = &copied
	return nil
}

func (m *memGuardians) Update(_ context.Context, guardian *storage.Guardian) error {
	if !m.patientExists(guardian.PatientID) {
		return storage.ErrInvalidReference
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[guardian.ID]; !ok {
		return storage.ErrNotFound
	}
	copied := *guardian
	m.rows[guardian.ID] = &copied
	return nil
}

func (m *memGuardians) Delete(_ context.Context, id int64) (*storage.Guardian, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.rows[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	delete(m.rows, id)
	return g, nil
}

type memDiseases struct {
	mu     sync.Mutex
	rows   map[int64]*storage.Disease
	nextID int64
}

func (m *memDiseases) List(ctx context.Context) ([]*storage.Disease, error) {
	return m.FindByName(ctx, "")
}

func (m *memDiseases) FindByName(_ context.Context, name string) ([]*storage.Disease, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*storage.Disease{}
	for _, d := range m.rows {
		if name == "" || d.Name == name {
			copied := *d
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memDiseases) Get(_ context.Context, id int64) (*storage.Disease, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.rows[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *d
	return &copied, nil
}

func (m *memDiseases) Create(_ context.Context, disease *storage.Disease) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	disease.ID = m.nextID
	copied := *disease
	m.rows[disease.ID] = &copied
	return nil
}

func (m *memDiseases) Update(_ context.Context, disease *storage.Disease) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[disease.ID]; !ok {
		return storage.ErrNotFound
	}
	copied := *disease
	m.rows[disease.ID] = &copied
	return nil
}

func (m *memDiseases) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

type memAttendance struct {
	mu       sync.Mutex
	rows     []*storage.Attendance
	nextID   int64
	patients *memPatients
}

func (m *memAttendance) List(context.Context) ([]*storage.Attendance, error) {
	return m.ListByPatient(context.Background(), 0)
}

func (m *memAttendance) ListByPatient(_ context.Context, patientID int64) ([]*storage.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*storage.Attendance{}
	for _, a := range m.rows {
		if patientID == 0 || a.PatientID == patientID {
			copied := *a
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memAttendance) Create(_ context.Context, attendance *storage.Attendance) error {
	if _, err := m.patients.Get(context.Background(), attendance.PatientID); err != nil {
		return storage.ErrInvalidReference
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	attendance.ID = m.nextID
	copied := *attendance
	m.rows = append(m.rows, &copied)
	return nil
}

func (m *memAttendance) Update(_ context.Context, attendance *storage.Attendance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.rows {
		if a.ID == attendance.ID {
			a.PatientID = attendance.PatientID
			return nil
		}
	}
	return storage.ErrNotFound
}

func (m *memAttendance) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, a := range m.rows {
		if a.ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return storage.ErrNotFound
}

type memHistory struct {
	mu       sync.Mutex
	rows     []*storage.HistoryEntry
	nextID   int64
	diseases *memDiseases
}

func (m *memHistory) ListByPatient(_ context.Context, patientID int64) ([]*storage.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*storage.HistoryEntry{}
	for _, e := range m.rows {
		if e.PatientID == patientID {
			copied := *e
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memHistory) Create(ctx context.Context, entry *storage.HistoryEntry) error {
	disease, err := m.diseases.Get(ctx, entry.DiseaseID)
	if err != nil {
		return storage.ErrInvalidReference
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	entry.ID = m.nextID
	entry.DiseaseName = disease.Name
	copied := *entry
	m.rows = append(m.rows, &copied)
	return nil
}

func (m *memHistory) DeleteByPatient(_ context.Context, patientID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.rows[:0]
	var n int64
	for _, e := range m.rows {
		if e.PatientID == patientID {
			n++
			continue
		}
		kept = append(kept, e)
	}
	m.rows = kept
	return n, nil
}

type testEnv struct {
	t          *testing.T
	service    *auth.Service
	users      *memUsers
	patients   *memPatients
	guardians  *memGuardians
	diseases   *memDiseases
	attendance *memAttendance
	history    *memHistory
	deps       Dependencies
	handler    http.Handler
}

func newTestEnv(t *testing.T, customize ...func(*Dependencies)) *testEnv {
	t.Helper()

	env := &testEnv{
		t:        t,
		users:    &memUsers{users: make(map[int64]*storage.User)},
		patients: newMemPatients(),
		diseases: &memDiseases{rows: make(map[int64]*storage.Disease)},
	}
	env.guardians = &memGuardians{rows: make(map[int64]*storage.Guardian), patients: env.patients}
	env.attendance = &memAttendance{patients: env.patients}
	env.history = &memHistory{diseases: env.diseases}

	tokens := auth.NewTokenManager([]byte("0123456789abcdef0123"), time.Hour)
	service, err := auth.NewService(env.users, auth.NewBcryptHasher(4), tokens, auth.NewMemoryRevocationStore(time.Hour))
	require.NoError(t, err)
	env.service = service

	env.deps = Dependencies{
		Auth:       service,
		Patients:   env.patients,
		Guardians:  env.guardians,
		Diseases:   env.diseases,
		Attendance: env.attendance,
		History:    env.history,
	}
	for _, fn := range customize {
		fn(&env.deps)
	}

	env.handler = NewServer(env.deps).Handler(HandlerOptions{MaxBodyBytes: 1 << 20, RequestTimeout: 5 * time.Second})
	return env
}

func (e *testEnv) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	e.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "192.0.2.10:40000"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// login registers a user once and returns a fresh token
func (e *testEnv) login() string {
	e.t.Helper()

	if _, err := e.users.FindByEmail(context.Background(), "nurse@carebase.test"); err != nil {
		rec := e.do(http.MethodPost, "/users/register", "", map[string]string{
			"email": "nurse@carebase.test", "password": "secret1", "first_name": "Ana", "last_name": "Lima",
		})
		require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := e.do(http.MethodPost, "/users/login", "", map[string]string{
		"email": "nurse@carebase.test", "password": "secret1",
	})
	require.Equal(e.t, http.StatusOK, rec.Code, rec.Body.String())

	var resp loginResponse
	require.NoError(e.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Token
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) []map[string]interface{} {
	t.Helper()
	var body []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func newRequest(method, path, authorization string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = "192.0.2.10:40000"
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
