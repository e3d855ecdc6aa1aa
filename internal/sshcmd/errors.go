package sshcmd

import "fmt"

// ErrorCode classifies why an ssh command could not be built.
type ErrorCode string

const (
	MissingKeyPath     ErrorCode = "MissingKeyPath"
	KeyFileNotFound    ErrorCode = "KeyFileNotFound"
	PassphraseNotFound ErrorCode = "PassphraseNotFound"
	PasswordNotFound   ErrorCode = "PasswordNotFound"
	SecretLookupFailed ErrorCode = "SecretLookupFailed"
)

// BuildError is returned when a profile cannot be turned into ssh arguments.
type BuildError struct {
	Code      ErrorCode
	ProfileID string
	Path      string
	Err       error
}

func (e *BuildError) Error() string {
	switch e.Code {
	case MissingKeyPath:
		return fmt.Sprintf("profile %s uses key authentication but has no private key path", e.ProfileID)
	case KeyFileNotFound:
		return fmt.Sprintf("private key file not found: %s", e.Path)
	case PassphraseNotFound:
		return fmt.Sprintf("no stored passphrase for profile %s", e.ProfileID)
	case PasswordNotFound:
		return fmt.Sprintf("no stored password for profile %s", e.ProfileID)
	}
	if e.Err != nil {
		return fmt.Sprintf("failed to look up credentials for profile %s: %v", e.ProfileID, e.Err)
	}
	return fmt.Sprintf("failed to build ssh command for profile %s", e.ProfileID)
}

func (e *BuildError) Unwrap() error { return e.Err }

// Is matches another *BuildError with the same code, so callers can test
// errors.Is(err, &BuildError{Code: PasswordNotFound}).
func (e *BuildError) Is(target error) bool {
	t, ok := target.(*BuildError)
	return ok && t.Code == e.Code
}
