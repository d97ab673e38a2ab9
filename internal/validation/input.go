package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ignatzorin/arbiter-backend/internal/models"
)

// Константы валидации
const (
	MinUsernameLength    = 3
	MaxUsernameLength    = 30
	MinDisplayNameLength = 1
	MaxDisplayNameLength = 50
	MinStatementLength   = 1
	MaxStatementLength   = 5000
	MinPasswordLength    = 8
	MaxPasswordLength    = 72 // лимит bcrypt
)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email обязателен")
	}

	email = strings.TrimSpace(strings.ToLower(email))

	parts := strings.Split(email, "@")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" || !strings.Contains(parts[1], ".") {
		return fmt.Errorf("некорректный формат email")
	}

	return nil
}

// ValidatePassword проверяет длину пароля.
func ValidatePassword(password string) error {
	return ValidateLength("пароль", password, MinPasswordLength, MaxPasswordLength)
}

// ValidateUsername проверяет имя пользователя.
func ValidateUsername(username string) error {
	return ValidateLength("имя пользователя", username, MinUsernameLength, MaxUsernameLength)
}

// ValidateDisputeInput проверяет параметры создания спора: режим, имена
// участников, персону. Любое нарушение отклоняется до побочных эффектов.
func ValidateDisputeInput(mode, personAName, personBName, persona string) error {
	if !models.ValidMode(mode) {
		return fmt.Errorf("неизвестный режим спора: %q", mode)
	}
	if !models.ValidPersona(persona) {
		return fmt.Errorf("неизвестная персона судьи: %q", persona)
	}
	if err := ValidateLength("имя первого участника", strings.TrimSpace(personAName), MinDisplayNameLength, MaxDisplayNameLength); err != nil {
		return err
	}
	if err := ValidateLength("имя второго участника", strings.TrimSpace(personBName), MinDisplayNameLength, MaxDisplayNameLength); err != nil {
		return err
	}
	return nil
}

// ValidateStatement проверяет текст реплики: финализированная реплика не
// может быть пустой.
func ValidateStatement(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("текст реплики не может быть пустым")
	}
	return ValidateLength("текст реплики", text, MinStatementLength, MaxStatementLength)
}
