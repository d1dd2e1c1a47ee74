package signing

import (
	"testing"
	"time"
)

func TestSignAndVerify_RoundTrips(t *testing.T) {
	at := time.Now()
	signed, err := Sign("card_1", "p1", "PARTICIPANT", at)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if !Verify("card_1", "p1", "PARTICIPANT", at, signed.PublicKeyHex, signed.SignatureHex) {
		t.Errorf("expected signature to verify against its own public key")
	}
}

func TestVerify_RejectsTamperedSigner(t *testing.T) {
	at := time.Now()
	signed, err := Sign("card_1", "p1", "PARTICIPANT", at)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if Verify("card_1", "p2", "PARTICIPANT", at, signed.PublicKeyHex, signed.SignatureHex) {
		t.Errorf("expected verification to fail for a different signer id")
	}
}

func TestSign_KeysAreEphemeral(t *testing.T) {
	at := time.Now()
	a, _ := Sign("card_1", "p1", "PARTICIPANT", at)
	b, _ := Sign("card_1", "p1", "PARTICIPANT", at)

	if a.PublicKeyHex == b.PublicKeyHex {
		t.Errorf("expected two signing acts to use distinct ephemeral keys")
	}
}
