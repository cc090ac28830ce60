package apitest

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// --- Auth ---

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[str(body, "email")]
	if !ok {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}
	if pw, _ := body["password"].(string); pw != a.Password {
		respondError(w, http.StatusUnauthorized, "Invalid password")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"token":   s.issueLocked(a.Email),
		"user":    a.record(),
	})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	first, last, email := str(body, "firstname"), str(body, "lastname"), str(body, "email")
	password, _ := body["password"].(string)
	if first == "" || last == "" || email == "" || password == "" {
		respondError(w, http.StatusBadRequest, "All fields are required")
		return
	}
	role := str(body, "role")
	if role == "" {
		role = "customer"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[email]; exists {
		respondError(w, http.StatusBadRequest, "Email already in use")
		return
	}
	a := s.addUserLocked(first, last, email, password, role)
	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Signup successful",
		"token":   s.issueLocked(a.Email),
	})
}

func (s *Server) handleProtected(w http.ResponseWriter, r *http.Request) {
	if s.ProbeDelay > 0 {
		select {
		case <-time.After(s.ProbeDelay):
		case <-r.Context().Done():
			return
		}
	}

	email := emailFromContext(r.Context())
	s.mu.Lock()
	a := s.accounts[email]
	s.mu.Unlock()

	role := ""
	if a != nil {
		role = a.Role
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"email":   email,
		"role":    role,
		"message": "Welcome to the protected route!",
	})
}

// --- Users ---

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := make([]map[string]any, 0, len(s.accounts))
	for _, a := range s.accounts {
		users = append(users, a.record())
	}
	sortByID(users)
	respondJSON(w, http.StatusOK, map[string]any{"data": users})
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	body, _ := readBody(r)
	first, last, role := str(body, "firstname"), str(body, "lastname"), str(body, "role")
	if first == "" || last == "" || role == "" {
		respondError(w, http.StatusBadRequest, "firstname, lastname et role requis")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.ID == id {
			a.Firstname, a.Lastname, a.Role = first, last, role
			respondJSON(w, http.StatusOK, map[string]any{"message": "Utilisateur mis à jour avec succès"})
			return
		}
	}
	respondError(w, http.StatusNotFound, "not found")
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for email, a := range s.accounts {
		if a.ID == id {
			delete(s.accounts, email)
			respondJSON(w, http.StatusOK, map[string]any{"message": "Utilisateur supprimé avec succès"})
			return
		}
	}
	respondError(w, http.StatusNotFound, "not found")
}

// --- Personnel ---

func (s *Server) handleListPersonnel(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]map[string]any, 0, len(s.personnel))
	for _, p := range s.personnel {
		row := copyRecord(p)
		row["sections"] = s.expandSectionsLocked(p["sections"])
		rows = append(rows, row)
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "data": rows})
}

// expandSectionsLocked turns stored section IDs into {id, label} objects.
// Unknown IDs are returned unchanged.
func (s *Server) expandSectionsLocked(v any) []any {
	ids, _ := v.([]any)
	out := make([]any, 0, len(ids))
	for _, raw := range ids {
		ref := fmt.Sprint(raw)
		if sec := s.findLocked(s.sections, ref); sec != nil {
			out = append(out, map[string]any{"id": sec["id"], "label": sec["label"]})
			continue
		}
		out = append(out, ref)
	}
	return out
}

func (s *Server) handleAddPersonnel(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil || body == nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if str(body, "matricule") == "" || str(body, "nom") == "" {
		respondError(w, http.StatusBadRequest, "Matricule and Nom are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.allocID()
	rec := copyRecord(body)
	rec["id"] = id
	if _, ok := rec["sections"].([]any); !ok {
		rec["sections"] = []any{}
	}
	s.personnel = append(s.personnel, rec)
	respondJSON(w, http.StatusCreated, map[string]any{"success": true, "id": id})
}

func (s *Server) handleUpdatePersonnel(partial bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := readBody(r)
		if err != nil || body == nil {
			respondError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		rec := s.findLocked(s.personnel, chiID(r))
		if rec == nil {
			respondError(w, http.StatusNotFound, "not found")
			return
		}
		if !partial {
			for k := range rec {
				if k != "id" {
					delete(rec, k)
				}
			}
		}
		for k, v := range body {
			if k != "id" {
				rec[k] = v
			}
		}
		respondJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Personnel updated"})
	}
}

func (s *Server) handleDeletePersonnel(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ok bool
	s.personnel, ok = removeLocked(s.personnel, chiID(r))
	if !ok {
		respondError(w, http.StatusNotFound, "not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleAssignSection(w http.ResponseWriter, r *http.Request) {
	body, _ := readBody(r)
	pid, sid := fmt.Sprint(body["personnel_id"]), fmt.Sprint(body["section_id"])
	if body["personnel_id"] == nil || body["section_id"] == nil {
		respondError(w, http.StatusBadRequest, "Personnel ID and Section ID are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.findLocked(s.personnel, pid)
	if p == nil || s.findLocked(s.sections, sid) == nil {
		respondError(w, http.StatusNotFound, "not found")
		return
	}
	secs, _ := p["sections"].([]any)
	p["sections"] = append(secs, sid)
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

// --- Sections ---

func (s *Server) handleListSections(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]map[string]any, 0, len(s.sections))
	for i := len(s.sections) - 1; i >= 0; i-- {
		rows = append(rows, copyRecord(s.sections[i]))
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "data": rows})
}

func (s *Server) handleAddSection(w http.ResponseWriter, r *http.Request) {
	body, _ := readBody(r)
	if str(body, "label") == "" || str(body, "unit") == "" || str(body, "type") == "" {
		respondError(w, http.StatusBadRequest, "Label, Unit, and Type are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.allocID()
	rec := copyRecord(body)
	rec["id"] = id
	s.sections = append(s.sections, rec)
	respondJSON(w, http.StatusCreated, map[string]any{"success": true, "id": id})
}

func (s *Server) handleUpdateSection(w http.ResponseWriter, r *http.Request) {
	body, _ := readBody(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.findLocked(s.sections, chiID(r))
	if rec == nil {
		respondError(w, http.StatusNotFound, "not found")
		return
	}
	for k, v := range body {
		if k != "id" {
			rec[k] = v
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleDeleteSection(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ok bool
	s.sections, ok = removeLocked(s.sections, chiID(r))
	if !ok {
		respondError(w, http.StatusNotFound, "not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

// --- Record helpers ---

func chiID(r *http.Request) string {
	id, ok := pathID(r)
	if !ok {
		return ""
	}
	return strconv.Itoa(id)
}

func (s *Server) findLocked(rows []map[string]any, id string) map[string]any {
	for _, row := range rows {
		if fmt.Sprint(row["id"]) == id {
			return row
		}
	}
	return nil
}

func removeLocked(rows []map[string]any, id string) ([]map[string]any, bool) {
	for i, row := range rows {
		if fmt.Sprint(row["id"]) == id {
			return append(rows[:i], rows[i+1:]...), true
		}
	}
	return rows, false
}

func copyRecord(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func sortByID(rows []map[string]any) {
	for i := 1; i < len(rows); i++ {
		for j := i; j > 0 && rows[j]["id"].(int) < rows[j-1]["id"].(int); j-- {
			rows[j], rows[j-1] = rows[j-1], rows[j]
		}
	}
}
