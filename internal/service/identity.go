package service

import (
	"strings"
)

// Identity is the authenticated caller, resolved once per request and passed
// explicitly into every operation.
type Identity struct {
	UserID        string
	Name          string
	Email         *string
	WalletAddress *string
	SessionID     string
	IP            string
}

func (id Identity) ipAddress() *string {
	if id.IP == "" {
		return nil
	}
	ip := id.IP
	return &ip
}

// DeleteConfirmation is the phrase a user must type to delete their account.
const DeleteConfirmation = "DELETE"

// ConfirmationPhrase is a typed acknowledgement, not a credential.
type ConfirmationPhrase string

// Confirms reports whether the phrase matches DeleteConfirmation, ignoring case.
func (p ConfirmationPhrase) Confirms() bool {
	return strings.EqualFold(strings.TrimSpace(string(p)), DeleteConfirmation)
}

// Result is the success payload of every mutating action.
type Result struct {
	Message string
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

func sameEmail(a *string, b string) bool {
	return a != nil && normalizeEmail(*a) == normalizeEmail(b)
}
