package overlay

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"testing"
)

func testSpec() OverlaySpec {
	return OverlaySpec{
		OverlayID: "acme-tenant",
		Version:   "1.2.0",
		AppliesTo: Selector{TenantID: "acme", Role: "admin"},
		Modifications: Modifications{
			RenameLabel{Field: "billing", NewLabel: "Invoicing"},
			SetLimit{Field: "seats", Max: 25, Message: "contact sales"},
		},
		Priority: 10,
		Metadata: map[string]any{"generatedAt": "2026-08-01T00:00:00Z"},
	}
}

func ed25519Keys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey, KeyResolver) {
	t.Helper()
	public, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	resolver := func(publicKeyID string) crypto.PublicKey {
		if publicKeyID == "key-1" {
			return public
		}
		return nil
	}
	return public, private, resolver
}

func TestSignVerifyRoundTrip(t *testing.T) {
	t.Run("ed25519", func(t *testing.T) {
		_, private, resolver := ed25519Keys(t)
		signed, err := SignOverlay(testSpec(), "key-1", private)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		if signed.Signature == nil || signed.Signature.Alg != AlgorithmEd25519 {
			t.Fatalf("unexpected signature envelope: %+v", signed.Signature)
		}
		if !Verify(signed, resolver) {
			t.Fatalf("expected fresh signature to verify")
		}
	})

	t.Run("rsa-pss", func(t *testing.T) {
		private, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			t.Fatalf("generate rsa key: %v", err)
		}
		resolver := func(string) crypto.PublicKey { return &private.PublicKey }

		signed, err := SignOverlay(testSpec(), "key-rsa", private)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		if signed.Signature.Alg != AlgorithmRSAPSS {
			t.Fatalf("expected rsa-pss alg, got %q", signed.Signature.Alg)
		}
		if !Verify(signed, resolver) {
			t.Fatalf("expected fresh signature to verify")
		}
	})
}

func TestSignRejectsUnsupportedKey(t *testing.T) {
	if _, err := Sign(testSpec(), "key-1", "not a key"); err == nil {
		t.Fatalf("expected unsupported key type to fail")
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	_, private, resolver := ed25519Keys(t)
	signed, err := SignOverlay(testSpec(), "key-1", private)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	mutations := []struct {
		name   string
		mutate func(*OverlaySpec)
	}{
		{"overlayId", func(s *OverlaySpec) { s.OverlayID = "acme-tenant2" }},
		{"version", func(s *OverlaySpec) { s.Version = "1.2.1" }},
		{"selector", func(s *OverlaySpec) { s.AppliesTo.Role = "viewer" }},
		{"priority", func(s *OverlaySpec) { s.Priority = 11 }},
		{"modification payload", func(s *OverlaySpec) {
			s.Modifications[0] = RenameLabel{Field: "billing", NewLabel: "Billing!"}
		}},
		{"modification order", func(s *OverlaySpec) {
			s.Modifications[0], s.Modifications[1] = s.Modifications[1], s.Modifications[0]
		}},
	}
	for _, tc := range mutations {
		t.Run(tc.name, func(t *testing.T) {
			tampered := signed.Clone()
			tc.mutate(&tampered)
			if Verify(tampered, resolver) {
				t.Fatalf("expected tampered %s to fail verification", tc.name)
			}
		})
	}
}

// Metadata is bookkeeping, not payload: re-stamping it after signing must not
// invalidate the signature.
func TestVerifyIgnoresMetadata(t *testing.T) {
	_, private, resolver := ed25519Keys(t)
	signed, err := SignOverlay(testSpec(), "key-1", private)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	signed.Metadata = map[string]any{
		"generatedAt": "2026-08-29T12:00:00Z",
		"automated":   true,
	}
	if !Verify(signed, resolver) {
		t.Fatalf("expected metadata changes to leave the signature valid")
	}
}

func TestVerifyFailureModes(t *testing.T) {
	_, private, resolver := ed25519Keys(t)
	signed, err := SignOverlay(testSpec(), "key-1", private)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	cases := []struct {
		name     string
		spec     func() OverlaySpec
		resolver KeyResolver
	}{
		{"missing envelope", func() OverlaySpec {
			out := signed.Clone()
			out.Signature = nil
			return out
		}, resolver},
		{"nil resolver", signed.Clone, nil},
		{"resolver miss", signed.Clone, func(string) crypto.PublicKey { return nil }},
		{"unknown alg tag", func() OverlaySpec {
			out := signed.Clone()
			out.Signature.Alg = "hmac-sha256"
			return out
		}, resolver},
		{"non-base64 value", func() OverlaySpec {
			out := signed.Clone()
			out.Signature.Value = "%%% not base64 %%%"
			return out
		}, resolver},
		{"wrong key type", signed.Clone, func(string) crypto.PublicKey {
			return "not a public key"
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if Verify(tc.spec(), tc.resolver) {
				t.Fatalf("expected verification to fail")
			}
		})
	}
}

// The signature must survive a wire round trip: canonicalization is applied
// identically at sign time and verify time, so marshal/parse cannot break
// it.
func TestVerifyAfterWireRoundTrip(t *testing.T) {
	_, private, resolver := ed25519Keys(t)
	signed, err := SignOverlay(testSpec(), "key-1", private)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	raw, err := MarshalOverlay(signed)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	parsed, err := ParseOverlay(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !Verify(parsed, resolver) {
		t.Fatalf("expected signature to survive marshal/parse round trip")
	}
}
