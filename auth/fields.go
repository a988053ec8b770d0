package auth

const (
	MessageLoginFields       = "You can't login without an email and password."
	MessageAllFieldsRequired = "All fields are required."
	MessagePasswordsMismatch = "Passwords must match."
)

// FieldError is a form rejected before anything else runs. Its message is
// shown to the user as is.
type FieldError struct{ Message string }

func (e *FieldError) Error() string { return e.Message }

type LoginFields struct {
	Email    string
	Password string
}

func (f LoginFields) Validate() error {
	if f.Email == "" || f.Password == "" {
		return &FieldError{Message: MessageLoginFields}
	}
	return nil
}

type RegistrationFields struct {
	Email           string
	Username        string
	Password        string
	ConfirmPassword string
}

func (f RegistrationFields) Validate() error {
	switch {
	case f.Email == "" || f.Username == "" || f.Password == "" || f.ConfirmPassword == "":
		return &FieldError{Message: MessageAllFieldsRequired}
	case f.Password != f.ConfirmPassword:
		return &FieldError{Message: MessagePasswordsMismatch}
	}
	return nil
}
