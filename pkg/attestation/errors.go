package attestation

import "errors"

// ErrQuorumNotMet is returned when fewer than RequiredCount validators
// produced an accepted vote over a digest.
var ErrQuorumNotMet = errors.New("attestation: quorum not met")
