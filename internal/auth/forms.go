package auth

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"asistenciaqr/internal/models"
)

// ErrInvalidForm is wrapped by every validation failure.
var ErrInvalidForm = errors.New("invalid form")

var validate = validator.New()

// LoginForm is what the staff member types on the login screen.
type LoginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegistrationForm is the sign-up screen. Only the embedded fields are
// sent to the backend.
type RegistrationForm struct {
	FirstName       string `validate:"required"`
	LastName        string `validate:"required"`
	DNI             string `validate:"required,len=8,numeric"`
	Email           string `validate:"required,email"`
	Phone           string `validate:"omitempty,numeric"`
	Password        string `validate:"required,min=8"`
	ConfirmPassword string `validate:"required,eqfield=Password"`
	AcceptTerms     bool   `validate:"required"`
}

// Registration returns the payload of POST /register.
func (f RegistrationForm) Registration() models.Registration {
	return models.Registration{
		FirstName: strings.TrimSpace(f.FirstName),
		LastName:  strings.TrimSpace(f.LastName),
		DNI:       strings.TrimSpace(f.DNI),
		Email:     strings.TrimSpace(f.Email),
		Phone:     strings.TrimSpace(f.Phone),
		Password:  f.Password,
	}
}

// FormError lists the user facing messages of a rejected form.
type FormError struct {
	Messages []string
}

func (e *FormError) Error() string {
	return strings.Join(e.Messages, " ")
}

// Cause lets errors.Cause reach ErrInvalidForm.
func (e *FormError) Cause() error { return ErrInvalidForm }

// Unwrap lets errors.Is reach ErrInvalidForm.
func (e *FormError) Unwrap() error { return ErrInvalidForm }

// Validate checks any struct carrying validate tags and translates the
// failures into the messages shown to staff.
func Validate(form interface{}) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Wrap(err, "validate")
	}
	fe := &FormError{}
	seen := make(map[string]bool)
	for _, v := range verrs {
		msg := message(v)
		if !seen[msg] {
			seen[msg] = true
			fe.Messages = append(fe.Messages, msg)
		}
	}
	return fe
}

// ValidateFilter checks that a list selection can be loaded or scanned.
func ValidateFilter(f models.Filter) error {
	f.Grado = strings.TrimSpace(f.Grado)
	return Validate(f)
}

func message(v validator.FieldError) string {
	switch v.Field() {
	case "DNI":
		if v.Tag() != "required" {
			return "El DNI debe tener exactamente 8 dígitos."
		}
	case "Password":
		if v.Tag() == "min" {
			return "La contraseña debe tener al menos 8 caracteres."
		}
	case "ConfirmPassword":
		if v.Tag() == "eqfield" {
			return "Las contraseñas no coinciden."
		}
	case "AcceptTerms":
		return "Debe aceptar los términos y condiciones."
	case "Email":
		if v.Tag() == "email" {
			return "El email no es válido."
		}
	case "Phone":
		return "El teléfono solo puede contener dígitos."
	case "Fecha":
		if v.Tag() == "datetime" {
			return "Formato de fecha inválido. Use YYYY-MM-DD"
		}
	case "Turno":
		if v.Tag() == "oneof" {
			return "El turno debe ser manana o tarde."
		}
	}
	return "Todos los campos obligatorios deben ser completados."
}
