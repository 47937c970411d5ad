package overlay

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	canonical "github.com/goliatone/go-overlays/canonical"
)

// KeyResolver maps a signature's publicKeyId to the public key it was issued
// for. Key storage (Vault, KMS, files) lives behind this function; the
// engine only defines the lookup shape. A nil return means the key is
// unknown and verification fails.
type KeyResolver func(publicKeyID string) crypto.PublicKey

// Sign produces the signature envelope for spec under keyID. The algorithm
// follows the key type: ed25519.PrivateKey signs with Ed25519,
// *rsa.PrivateKey signs a SHA-256 digest with RSA-PSS. The signed bytes are
// the canonical form of the spec's payload: overlayId, version, appliesTo,
// modifications, and priority. Metadata and the signature envelope itself
// are excluded, so bookkeeping like a generatedAt re-stamp never invalidates
// a signature.
func Sign(spec OverlaySpec, keyID string, key crypto.PrivateKey) (Signature, error) {
	payload, err := signingBytes(spec)
	if err != nil {
		return Signature{}, err
	}

	switch typed := key.(type) {
	case ed25519.PrivateKey:
		value := ed25519.Sign(typed, payload)
		return Signature{
			Alg:         AlgorithmEd25519,
			PublicKeyID: keyID,
			Value:       base64.StdEncoding.EncodeToString(value),
		}, nil
	case *rsa.PrivateKey:
		digest := sha256.Sum256(payload)
		value, err := rsa.SignPSS(rand.Reader, typed, crypto.SHA256, digest[:], &rsa.PSSOptions{
			SaltLength: rsa.PSSSaltLengthEqualsHash,
			Hash:       crypto.SHA256,
		})
		if err != nil {
			return Signature{}, fmt.Errorf("overlay: rsa-pss sign %s: %w", spec.Key(), err)
		}
		return Signature{
			Alg:         AlgorithmRSAPSS,
			PublicKeyID: keyID,
			Value:       base64.StdEncoding.EncodeToString(value),
		}, nil
	default:
		return Signature{}, fmt.Errorf("overlay: unsupported signing key type %T", key)
	}
}

// SignOverlay returns a copy of spec with its signature envelope populated.
func SignOverlay(spec OverlaySpec, keyID string, key crypto.PrivateKey) (OverlaySpec, error) {
	signature, err := Sign(spec, keyID, key)
	if err != nil {
		return OverlaySpec{}, err
	}
	out := spec.Clone()
	out.Signature = &signature
	return out, nil
}

// Verify re-canonicalizes the spec's payload and checks its signature against
// the key the resolver returns for signature.publicKeyId. It reports false on
// every failure mode without distinguishing them: missing envelope, unknown
// algorithm tag, malformed base64, resolver miss, key-type mismatch, or a
// byte-level mismatch. Callers decide whether false is fatal.
func Verify(spec OverlaySpec, resolver KeyResolver) bool {
	if spec.Signature == nil || resolver == nil {
		return false
	}
	value, err := base64.StdEncoding.DecodeString(spec.Signature.Value)
	if err != nil {
		return false
	}
	payload, err := signingBytes(spec)
	if err != nil {
		return false
	}
	key := resolver(spec.Signature.PublicKeyID)
	if key == nil {
		return false
	}

	switch spec.Signature.Alg {
	case AlgorithmEd25519:
		public, ok := key.(ed25519.PublicKey)
		if !ok {
			return false
		}
		return ed25519.Verify(public, payload, value)
	case AlgorithmRSAPSS:
		public, ok := key.(*rsa.PublicKey)
		if !ok {
			return false
		}
		digest := sha256.Sum256(payload)
		return rsa.VerifyPSS(public, crypto.SHA256, digest[:], value, &rsa.PSSOptions{
			SaltLength: rsa.PSSSaltLengthEqualsHash,
			Hash:       crypto.SHA256,
		}) == nil
	default:
		return false
	}
}

// signingBytes builds the canonical byte form of the signed payload. Sign and
// Verify share it so both sides always canonicalize identically.
func signingBytes(spec OverlaySpec) ([]byte, error) {
	selector := map[string]any{}
	for _, dim := range spec.AppliesTo.Dimensions() {
		selector[dim.Name] = dim.Value
	}

	modifications := make([]any, len(spec.Modifications))
	for i, mod := range spec.Modifications {
		if mod == nil {
			return nil, fmt.Errorf("overlay: sign %s: modification %d is nil", spec.Key(), i)
		}
		value, err := wireValue(mod)
		if err != nil {
			return nil, err
		}
		modifications[i] = value
	}

	payload := map[string]any{
		"overlayId":     spec.OverlayID,
		"version":       spec.Version,
		"appliesTo":     selector,
		"modifications": modifications,
		"priority":      spec.Priority,
	}
	return canonical.CanonicalBytes(payload)
}
