package models

// ScanStatus is the outcome reported by POST /api/asistencia/scan.
type ScanStatus string

const (
	ScanSuccess   ScanStatus = "success"
	ScanDuplicate ScanStatus = "duplicate"
	ScanNotFound  ScanStatus = "not_found"
)

// Valid reports whether s is one of the three known outcomes.
func (s ScanStatus) Valid() bool {
	switch s {
	case ScanSuccess, ScanDuplicate, ScanNotFound:
		return true
	}
	return false
}

// ScanRequest is the body of POST /api/asistencia/scan.
type ScanRequest struct {
	CodigoID string `json:"codigo_id"`
	Fecha    string `json:"fecha"`
	Turno    string `json:"turno"`
}

// ScanResponse is the canonical reply of POST /api/asistencia/scan.
type ScanResponse struct {
	Status      ScanStatus `json:"status"`
	StudentName string     `json:"student_name,omitempty"`
	CodigoID    string     `json:"codigo_id"`
}

// Envelope is the {success, message} wrapper shared by most endpoints.
type Envelope struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

// Account is the authenticated staff member returned by /check_auth.
type Account struct {
	ID       int    `json:"id"`
	Nombre   string `json:"nombre"`
	Apellido string `json:"apellido"`
	Email    string `json:"email"`
}

// Registration is the body of POST /register.
type Registration struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	DNI       string `json:"dni" validate:"required,len=8,numeric"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone,omitempty"`
	Password  string `json:"password" validate:"required,min=8"`
}
