package authform

import "github.com/componenthub/hubauth/pkg/identity"

// Validation messages.
const (
	MsgEmailRequired    = "Email is required"
	MsgEmailInvalid     = "Please enter a valid email"
	MsgPasswordRequired = "Password is required"
	MsgPasswordShort    = "Password must be at least 6 characters"
	MsgNameRequired     = "Name is required"
)

// Form-level messages.
const (
	MsgDefault          = "An error occurred. Please try again."
	MsgLinkedInDisabled = "LinkedIn sign-in is coming soon! Please use Google, Facebook, or email to continue."
)

var providerMessages = map[identity.Code]string{
	identity.CodeUserNotFound:      "No user found with this email address.",
	identity.CodeWrongPassword:     "Incorrect password.",
	identity.CodeEmailAlreadyInUse: "An account with this email already exists.",
	identity.CodeWeakPassword:      "Password should be at least 6 characters.",
	identity.CodeInvalidEmail:      "Please enter a valid email address.",
	identity.CodeTooManyRequests:   "Too many failed attempts. Please try again later.",
	identity.CodePopupClosed:       "Login popup was closed. Please try again.",
	identity.CodeCancelledPopup:    "Login request was cancelled.",
}

// Message returns the user-facing text of a provider error code.
func Message(code identity.Code) string {
	if msg, ok := providerMessages[code]; ok {
		return msg
	}
	return MsgDefault
}
