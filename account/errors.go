package account

// Error is an authentication failure with a message that is safe to show to the user.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	ErrMissingFields      = &Error{Code: "missing-fields", Message: "Please fill in all fields"}
	ErrInvalidEmail       = &Error{Code: "invalid-email", Message: "Invalid email address"}
	ErrUserNotFound       = &Error{Code: "user-not-found", Message: "No account found with this email"}
	ErrWrongPassword      = &Error{Code: "wrong-password", Message: "Incorrect password"}
	ErrTooManyAttempts    = &Error{Code: "too-many-requests", Message: "Too many failed attempts. Please try again later"}
	ErrAccountNotFound    = &Error{Code: "account-not-found", Message: "Account not found!!!"}
	ErrInvalidAccountType = &Error{Code: "invalid-account-type", Message: "Invalid account type!!!"}
	ErrAccountInactive    = &Error{Code: "account-inactive", Message: "Account is not active!!!"}
	ErrEmailInUse         = &Error{Code: "email-already-in-use", Message: "An account already exists with this email"}
	ErrWeakPassword       = &Error{Code: "weak-password", Message: "Password should be at least 6 characters"}
	ErrInvalidRole        = &Error{Code: "invalid-role", Message: "Please choose Customer or Provider"}
	ErrEmptyName          = &Error{Code: "empty-name", Message: "Name cannot be empty"}
)
