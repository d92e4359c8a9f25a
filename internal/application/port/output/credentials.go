package output

import (
	"context"
	"errors"

	"browserx/internal/domain/entity"
)

// ErrPromptRejected is returned by prompters when the operator declines.
var ErrPromptRejected = errors.New("prompt rejected")

type CredentialStore interface {
	// Lookup finds the credential whose domain key is contained in the
	// hostname of rawURL. ok is false when none matches.
	Lookup(rawURL string) (cred entity.Credential, ok bool, err error)
}

// CredentialPrompter blocks until the operator has stored credentials for
// domain, or fails when the request is rejected.
type CredentialPrompter interface {
	RequestCredentials(ctx context.Context, domain string) error
}

type HumanIntervention interface {
	RequestIntervention(ctx context.Context, reason string) error
}
