// Package credential packages credential payloads into signed verifiable
// envelopes.
//
// Three built-in signers cover the issuance formats: [JWTVC] (enveloped
// JWT), [SDJWT] (selective-disclosure JWT with salted disclosures), and
// [MDoc] (CBOR mobile-document with a COSE-signed security object). Signers
// are capability providers: they register in the same registry mechanism as
// required actions, keyed by format identifier, and are resolved per
// issuance request.
//
// This module does not pin concrete issuance cryptography beyond the signer
// configs; holder binding, status lists, and key distribution are external
// concerns.
package credential
