package security

import (
	"crypto/ed25519"
	"encoding/base64"

	"gridlease-backend/internal/logger"
)

// SignatureVerifier is the boundary contract for wallet-signature checks.
// The network-specific routine lives behind this interface; the engine only
// ever asks "did claimedSigner sign message".
type SignatureVerifier interface {
	Verify(message, signature []byte, claimedSigner string) bool
}

// Ed25519Verifier verifies ed25519 signatures against base64-encoded
// public keys, the signing scheme used by wallet clients.
type Ed25519Verifier struct{}

func NewEd25519Verifier() *Ed25519Verifier {
	return &Ed25519Verifier{}
}

func (v *Ed25519Verifier) Verify(message, signature []byte, claimedSigner string) bool {
	pub, err := base64.StdEncoding.DecodeString(claimedSigner)
	if err != nil {
		logger.Debug("Signature verification failed: bad public key encoding", "signer", claimedSigner)
		return false
	}
	if len(pub) != ed25519.PublicKeySize {
		logger.Debug("Signature verification failed: wrong public key size", "size", len(pub))
		return false
	}
	if len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), message, signature)
}
