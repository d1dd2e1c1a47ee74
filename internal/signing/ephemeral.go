// Package signing produces the ed25519 signatures attached to a Court
// Card at signature-intake time. Each signing act generates a fresh
// keypair, signs once, and discards the private key — only the public key
// travels with the signature. This means verification later can only
// confirm a signature's presence and internal consistency, never
// re-derive trust from a persistent identity; that tradeoff is accepted
// because the signer's real authentication already happened upstream
// (password re-entry or a one-use emailed code).
package signing

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// Signed is the result of one signing act.
type Signed struct {
	PublicKeyHex string
	SignatureHex string
}

// Sign builds the canonical message for a card signature and signs it
// with a freshly generated ephemeral keypair.
func Sign(cardID, signerID, signerRole string, at time.Time) (Signed, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Signed{}, fmt.Errorf("generate ephemeral key: %w", err)
	}

	message := canonicalMessage(cardID, signerID, signerRole, at)
	sig := ed25519.Sign(priv, message)

	return Signed{
		PublicKeyHex: hex.EncodeToString(pub),
		SignatureHex: hex.EncodeToString(sig),
	}, nil
}

// Verify checks that a signature was produced by the private key paired
// with the given public key over the reconstructed canonical message. It
// confirms internal consistency, not identity — the public key is not
// registered anywhere else.
func Verify(cardID, signerID, signerRole string, at time.Time, publicKeyHex, signatureHex string) bool {
	pub, err := hex.DecodeString(publicKeyHex)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false
	}
	sig, err := hex.DecodeString(signatureHex)
	if err != nil {
		return false
	}
	message := canonicalMessage(cardID, signerID, signerRole, at)
	return ed25519.Verify(ed25519.PublicKey(pub), message, sig)
}

func canonicalMessage(cardID, signerID, signerRole string, at time.Time) []byte {
	var buf bytes.Buffer
	buf.WriteString("PROOFMEET-CARD-SIGNATURE|")
	buf.WriteString(cardID)
	buf.WriteByte('|')
	buf.WriteString(signerID)
	buf.WriteByte('|')
	buf.WriteString(signerRole)
	buf.WriteByte('|')
	buf.WriteString(at.UTC().Format(time.RFC3339))
	return buf.Bytes()
}
