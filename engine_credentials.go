package keycloak

import (
	"context"
	"fmt"

	"github.com/tullisdebbi6/keycloak/credential"
)

// SignCredential packages a credential payload into the requested envelope
// format using the registered signer. An unknown format fails with
// [ErrProviderNotFound]; configuration errors are not retried.
func (e *Engine) SignCredential(ctx context.Context, format string, payload credential.Payload) (*credential.Envelope, error) {
	signer, ok := e.signers.Resolve(format)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, format)
	}
	return signer.Sign(ctx, payload)
}

// CredentialFormats lists the registered envelope format identifiers.
func (e *Engine) CredentialFormats() []string {
	return e.signers.TypeIDs()
}
