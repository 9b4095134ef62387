package auth

import (
	"errors"
	"strings"
	"testing"

	"asistenciaqr/internal/models"
)

func validForm() RegistrationForm {
	return RegistrationForm{
		FirstName:       "Ana",
		LastName:        "Quispe",
		DNI:             "12345678",
		Email:           "ana@colegio.pe",
		Password:        "secreto123",
		ConfirmPassword: "secreto123",
		AcceptTerms:     true,
	}
}

func TestRegistrationForm(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*RegistrationForm)
		want   string
	}{
		{"valid", func(*RegistrationForm) {}, ""},
		{"short dni", func(f *RegistrationForm) { f.DNI = "1234" }, "DNI"},
		{"letters in dni", func(f *RegistrationForm) { f.DNI = "1234567a" }, "DNI"},
		{"short password", func(f *RegistrationForm) { f.Password, f.ConfirmPassword = "corto", "corto" }, "al menos 8"},
		{"mismatch", func(f *RegistrationForm) { f.ConfirmPassword = "otracosa1" }, "no coinciden"},
		{"terms", func(f *RegistrationForm) { f.AcceptTerms = false }, "términos"},
		{"missing name", func(f *RegistrationForm) { f.FirstName = "" }, "obligatorios"},
		{"bad email", func(f *RegistrationForm) { f.Email = "ana" }, "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validForm()
			tt.modify(&f)
			err := Validate(f)
			if tt.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidForm) {
				t.Fatalf("expected ErrInvalidForm, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected message containing %q, got %q", tt.want, err.Error())
			}
		})
	}
}

func TestRegistrationPayloadTrims(t *testing.T) {
	f := validForm()
	f.Email = "  ana@colegio.pe "
	if got := f.Registration().Email; got != "ana@colegio.pe" {
		t.Fatalf("expected trimmed email, got %q", got)
	}
}

func TestValidateFilter(t *testing.T) {
	ok := models.Filter{Grado: "primero", Fecha: "2024-03-11", Turno: models.ShiftAfternoon}
	if err := ValidateFilter(ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, f := range []models.Filter{
		{Grado: "  ", Fecha: "2024-03-11", Turno: models.ShiftMorning},
		{Grado: "primero", Fecha: "11/03/2024", Turno: models.ShiftMorning},
		{Grado: "primero", Fecha: "2024-03-11", Turno: "noche"},
	} {
		if err := ValidateFilter(f); !errors.Is(err, ErrInvalidForm) {
			t.Errorf("%+v: expected ErrInvalidForm, got %v", f, err)
		}
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("secreto123")
	if err != nil {
		t.Fatal(err)
	}
	if !CheckPasswordHash("secreto123", hash) || CheckPasswordHash("otra", hash) {
		t.Fatal("hash check mismatch")
	}
}
