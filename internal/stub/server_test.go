package stub

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"asistenciaqr/internal/models"
)

func TestAPIRequiresSession(t *testing.T) {
	s := New([]byte("0123456789abcdef0123456789abcdef"), nil)
	for _, path := range []string{"/api/estudiantes?grado=1", "/api/asistencia?grado=1&fecha=2024-03-11&turno=manana"} {
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", path, rec.Code)
		}
	}
}

func TestAddStudentGeneratesCode(t *testing.T) {
	s := New([]byte("0123456789abcdef0123456789abcdef"), nil)
	st := s.AddStudent(models.Student{Nombres: "Rosa", Apellidos: "Mamani", DNI: "44556677", Grado: "primero"})
	if !strings.HasPrefix(st.CodigoID, "PRI-6677-") {
		t.Fatalf("unexpected code %q", st.CodigoID)
	}
	other := s.AddStudent(models.Student{Nombres: "Jorge", Apellidos: "Flores", Grado: "primero"})
	if other.ID == st.ID || other.CodigoID == st.CodigoID {
		t.Fatalf("expected distinct ids and codes, got %+v and %+v", st, other)
	}
}

func TestAddAccountRejectsDuplicates(t *testing.T) {
	s := New([]byte("0123456789abcdef0123456789abcdef"), nil)
	if err := s.AddAccount("a@b.pe", "secreto123", "Ana", "Quispe", "12345678"); err != nil {
		t.Fatal(err)
	}
	if err := s.AddAccount("A@B.pe", "secreto123", "Ana", "Quispe", "87654321"); err != errDuplicateEmail {
		t.Fatalf("expected duplicate email, got %v", err)
	}
	if err := s.AddAccount("c@b.pe", "secreto123", "Ana", "Quispe", "12345678"); err != errDuplicateDNI {
		t.Fatalf("expected duplicate DNI, got %v", err)
	}
}
