package crm

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	// ErrNotFound: el registro no existe o el usuario no puede verlo.
	ErrNotFound = errors.New("not found")
	// ErrForbidden: la operación no está permitida para el rol.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidTransition: el estado actual no admite la operación.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrConfirmationRequired: reasignar a otra persona requiere confirmación explícita.
	ErrConfirmationRequired = errors.New("reassignment requires confirmation")
	// ErrFollowUpExists: la actividad ya tiene su actividad de seguimiento.
	ErrFollowUpExists = errors.New("follow-up activity already created")
	// ErrNoSalesperson: no hay vendedores activos para asignar llamadas.
	ErrNoSalesperson = errors.New("no active salesperson available")
	// ErrInvalidCredentials: usuario o contraseña incorrectos.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError: error de validación local, se detecta antes de tocar la base.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, msg string) error {
	return ValidationError{Field: field, Message: msg}
}

func IsValidation(err error) bool {
	var v ValidationError
	return errors.As(err, &v)
}

// notFound traduce gorm.ErrRecordNotFound a ErrNotFound.
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("load %s: %w", what, err)
}
