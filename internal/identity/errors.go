package identity

import (
	"net/http"

	apperrors "github.com/Jis87-63/moz-digital-store/pkg/errors"
)

// Localized authentication failures.
var (
	ErrEmailInUse = &apperrors.AppError{
		Code:    "EMAIL_IN_USE",
		Message: "Este email já está em uso",
		Status:  http.StatusConflict,
		Err:     apperrors.ErrAlreadyExists,
	}
	ErrWeakPassword = &apperrors.AppError{
		Code:    "WEAK_PASSWORD",
		Message: "A senha deve ter pelo menos 6 caracteres",
		Status:  http.StatusBadRequest,
		Err:     apperrors.ErrInvalidInput,
	}
	ErrInvalidEmail = &apperrors.AppError{
		Code:    "INVALID_EMAIL",
		Message: "Email inválido",
		Status:  http.StatusBadRequest,
		Err:     apperrors.ErrInvalidInput,
	}
	ErrInvalidPhone = &apperrors.AppError{
		Code:    "INVALID_PHONE",
		Message: "Número de telefone inválido",
		Status:  http.StatusBadRequest,
		Err:     apperrors.ErrInvalidInput,
	}
	ErrUsernameRequired = &apperrors.AppError{
		Code:    "USERNAME_REQUIRED",
		Message: "O nome de usuário é obrigatório",
		Status:  http.StatusBadRequest,
		Err:     apperrors.ErrInvalidInput,
	}
	ErrInvalidCredentials = &apperrors.AppError{
		Code:    "INVALID_CREDENTIALS",
		Message: "Email ou senha incorretos",
		Status:  http.StatusUnauthorized,
		Err:     apperrors.ErrUnauthorized,
	}
	ErrInvalidSession = &apperrors.AppError{
		Code:    "INVALID_SESSION",
		Message: "Sessão inválida ou expirada",
		Status:  http.StatusUnauthorized,
		Err:     apperrors.ErrUnauthorized,
	}
)
