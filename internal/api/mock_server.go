package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// MockServer provides a fake profile/history API for testing.
type MockServer struct {
	*httptest.Server
	mu      sync.RWMutex
	profile *Profile
	records []Record
	fail    bool
}

// NewMockServer creates a mock API server with no data.
func NewMockServer() *MockServer {
	m := &MockServer{}

	mux := http.NewServeMux()

	mux.HandleFunc("/profile", func(w http.ResponseWriter, r *http.Request) {
		if m.failing(w) {
			return
		}
		switch r.Method {
		case http.MethodGet:
			m.handleGetProfile(w, r)
		case http.MethodPut:
			m.handleUpdateProfile(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/records", func(w http.ResponseWriter, r *http.Request) {
		if m.failing(w) {
			return
		}
		switch r.Method {
		case http.MethodGet:
			m.handleListRecords(w, r)
		case http.MethodPost:
			m.handleAddRecord(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/records/delete", func(w http.ResponseWriter, r *http.Request) {
		if m.failing(w) {
			return
		}
		m.handleDeleteRecords(w, r)
	})

	mux.HandleFunc("/records/", func(w http.ResponseWriter, r *http.Request) {
		if m.failing(w) {
			return
		}
		id := strings.TrimPrefix(r.URL.Path, "/records/")
		switch r.Method {
		case http.MethodPatch:
			m.handleUpdateRecord(w, r, id)
		case http.MethodDelete:
			m.handleDeleteRecord(w, r, id)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	m.Server = httptest.NewServer(mux)
	return m
}

// SetProfile seeds the server's profile.
func (m *MockServer) SetProfile(p *Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profile = p
}

// AddRecord seeds a history record.
func (m *MockServer) AddRecord(r Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, r)
}

// Records returns a copy of the stored records (for test assertions).
func (m *MockServer) Records() []Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Record, len(m.records))
	copy(out, m.records)
	return out
}

// SetFailing makes every subsequent request return 500, to exercise the
// local-fallback paths.
func (m *MockServer) SetFailing(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = fail
}

func (m *MockServer) failing(w http.ResponseWriter) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.fail {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return true
	}
	return false
}

func (m *MockServer) handleGetProfile(w http.ResponseWriter, _ *http.Request) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.profile == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(m.profile)
}

func (m *MockServer) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var p Profile
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	m.profile = &p

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(m.profile)
}

func (m *MockServer) handleListRecords(w http.ResponseWriter, _ *http.Request) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := m.records
	if records == nil {
		records = []Record{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}

func (m *MockServer) handleAddRecord(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var rec Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	m.records = append(m.records, rec)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rec)
}

func (m *MockServer) handleUpdateRecord(w http.ResponseWriter, r *http.Request, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var patch Record
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	for i := range m.records {
		if m.records[i].ID == id {
			if patch.Score != 0 {
				m.records[i].Score = patch.Score
			}
			if patch.HealthIndex != 0 {
				m.records[i].HealthIndex = patch.HealthIndex
			}
			if patch.Details != nil {
				m.records[i].Details = patch.Details
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(m.records[i])
			return
		}
	}
	http.Error(w, "not found", http.StatusNotFound)
}

func (m *MockServer) handleDeleteRecord(w http.ResponseWriter, _ *http.Request, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.records {
		if m.records[i].ID == id {
			m.records = append(m.records[:i], m.records[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	http.Error(w, "not found", http.StatusNotFound)
}

func (m *MockServer) handleDeleteRecords(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var body struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	keep := m.records[:0]
	for _, rec := range m.records {
		matched := false
		for _, id := range body.IDs {
			if rec.ID == id {
				matched = true
				break
			}
		}
		if !matched {
			keep = append(keep, rec)
		}
	}
	m.records = keep
	w.WriteHeader(http.StatusNoContent)
}
