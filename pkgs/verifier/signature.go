package verifier

import (
	"crypto/ed25519"
	"encoding/hex"
)

// DecodePublicKey turns a registered key string into a usable Ed25519 key.
// Keys are stored as hex at registration time; a row that fails to decode
// maps to ReasonInvalidPubKey, and one that decodes to the wrong length maps
// to ReasonBadPubKey. Both indicate corrupt registration data, not a bad
// submission.
func DecodePublicKey(keyHex string) (ed25519.PublicKey, Reason) {
	raw, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, ReasonInvalidPubKey
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, ReasonBadPubKey
	}
	return ed25519.PublicKey(raw), ReasonNone
}

// VerifySignature checks the Ed25519 signature over the message bytes as
// received. Undecodable signature hex maps to ReasonBadSignature, decodable
// hex of the wrong length for the scheme to ReasonSignatureParse; neither
// reaches the curve math.
func VerifySignature(message []byte, signatureHex string, key ed25519.PublicKey) Reason {
	sig, err := hex.DecodeString(signatureHex)
	if err != nil {
		return ReasonBadSignature
	}
	if len(sig) != ed25519.SignatureSize {
		return ReasonSignatureParse
	}
	if !ed25519.Verify(key, message, sig) {
		return ReasonBadSignature
	}
	return ReasonNone
}
