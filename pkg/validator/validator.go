package validator

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MaxMessageLength = 500
	MaxBioLength     = 1000
)

type ValidationErrors map[string]string

func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

func (v ValidationErrors) Add(field, message string) {
	v[field] = message
}

var usernameRegex = regexp.MustCompile(`^[a-z0-9_-]+$`)

func ValidateRegister(email, displayName, password string) ValidationErrors {
	errs := make(ValidationErrors)

	validateEmail(email, errs)
	validateDisplayName(displayName, errs)
	validatePassword("password", password, errs)

	return errs
}

func ValidateLogin(email, password string) ValidationErrors {
	errs := make(ValidationErrors)

	validateEmail(email, errs)
	if password == "" {
		errs.Add("password", "Password is required")
	}

	return errs
}

func ValidateChangePassword(current, next string) ValidationErrors {
	errs := make(ValidationErrors)

	if current == "" {
		errs.Add("current_password", "Current password is required")
	}
	validatePassword("new_password", next, errs)
	if current != "" && current == next {
		errs.Add("new_password", "New password must differ from the current one")
	}

	return errs
}

// ValidateMessageText checks a chat message as typed. Whitespace-only text is
// rejected; the length limit counts characters, not bytes.
func ValidateMessageText(text string) ValidationErrors {
	errs := make(ValidationErrors)

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		errs.Add("text", "Message text is required")
	} else if utf8.RuneCountInString(trimmed) > MaxMessageLength {
		errs.Add("text", fmt.Sprintf("Message must be at most %d characters", MaxMessageLength))
	}

	return errs
}

func ValidateUsername(username string) ValidationErrors {
	errs := make(ValidationErrors)
	validateUsername(username, errs)
	return errs
}

// ValidateProfileUpdate checks only the fields being changed.
func ValidateProfileUpdate(displayName, username, bio, website *string) ValidationErrors {
	errs := make(ValidationErrors)

	if displayName != nil {
		validateDisplayName(*displayName, errs)
	}
	if username != nil {
		validateUsername(*username, errs)
	}
	if bio != nil && utf8.RuneCountInString(*bio) > MaxBioLength {
		errs.Add("bio", "Bio is too long")
	}
	if website != nil {
		w := strings.TrimSpace(*website)
		if w != "" && !strings.HasPrefix(w, "http://") && !strings.HasPrefix(w, "https://") {
			errs.Add("website", "Website must start with http:// or https://")
		}
	}

	return errs
}

func validateEmail(email string, errs ValidationErrors) {
	email = strings.TrimSpace(email)
	if email == "" {
		errs.Add("email", "Email is required")
	} else if _, err := mail.ParseAddress(email); err != nil {
		errs.Add("email", "Invalid email address")
	}
}

func validateDisplayName(displayName string, errs ValidationErrors) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		errs.Add("display_name", "Display name is required")
	} else if utf8.RuneCountInString(displayName) < 2 {
		errs.Add("display_name", "Display name must be at least 2 characters")
	} else if utf8.RuneCountInString(displayName) > 100 {
		errs.Add("display_name", "Display name is too long")
	}
}

func validateUsername(username string, errs ValidationErrors) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		errs.Add("username", "Username is required")
	} else if len(username) < 3 {
		errs.Add("username", "Username must be at least 3 characters")
	} else if len(username) > 50 {
		errs.Add("username", "Username is too long")
	} else if !usernameRegex.MatchString(username) {
		errs.Add("username", "Username can only contain letters, numbers, _ and -")
	}
}

func validatePassword(field, password string, errs ValidationErrors) {
	if len(password) < 8 {
		errs.Add(field, "Password must be at least 8 characters")
		return
	}

	var hasUpper, hasLower, hasDigit bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasDigit = true
		}
	}

	missing := []string{}
	if !hasUpper {
		missing = append(missing, "one uppercase letter")
	}
	if !hasLower {
		missing = append(missing, "one lowercase letter")
	}
	if !hasDigit {
		missing = append(missing, "one number")
	}

	if len(missing) > 0 {
		errs.Add(field, fmt.Sprintf("Password must contain at least %s", strings.Join(missing, ", ")))
	}
}
