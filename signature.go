package storehouse

import (
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // SHA-1 is the wire format existing signers use
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"net/url"
	"sort"
	"strings"
)

// Algorithm selects the digest used for signatures.
type Algorithm string

const (
	AlgorithmSHA1   Algorithm = "sha1"
	AlgorithmSHA256 Algorithm = "sha256"
)

func (a Algorithm) IsValid() bool {
	switch a {
	case AlgorithmSHA1, AlgorithmSHA256:
		return true
	default:
		return false
	}
}

// ParseAlgorithm parses a config value. An empty string selects SHA-1.
func ParseAlgorithm(s string) (Algorithm, error) {
	if s == "" {
		return AlgorithmSHA1, nil
	}
	alg := Algorithm(strings.ToLower(s))
	if !alg.IsValid() {
		return "", fmt.Errorf("invalid signature algorithm: %s (valid: sha1, sha256)", s)
	}
	return alg, nil
}

func (a Algorithm) newHash() hash.Hash {
	if a == AlgorithmSHA256 {
		return sha256.New()
	}
	return sha1.New() //nolint:gosec // see import
}

// Authenticator signs and verifies requests with the process-wide secret.
// It is immutable after construction and safe for concurrent use.
type Authenticator struct {
	secret    []byte
	algorithm Algorithm
}

// NewAuthenticator creates an Authenticator. An empty secret is a
// configuration error.
func NewAuthenticator(secret []byte, alg Algorithm) (*Authenticator, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}
	if alg == "" {
		alg = AlgorithmSHA1
	}
	if !alg.IsValid() {
		return nil, fmt.Errorf("new authenticator: invalid algorithm: %s", alg)
	}

	s := make([]byte, len(secret))
	copy(s, secret)

	return &Authenticator{secret: s, algorithm: alg}, nil
}

// Algorithm returns the digest the authenticator signs with.
func (a *Authenticator) Algorithm() Algorithm {
	return a.algorithm
}

// ComputeSignature returns the hex signature of fields.
func (a *Authenticator) ComputeSignature(fields SignedRequest) string {
	return ComputeSignature(fields, a.secret, a.algorithm)
}

// Verify reports whether candidate is the signature of fields. candidate is
// compared exactly as sent, so it must be lowercase hex. The comparison is
// constant-time.
func (a *Authenticator) Verify(fields SignedRequest, candidate string) bool {
	if candidate == "" {
		return false
	}
	expected := a.ComputeSignature(fields)
	return hmac.Equal([]byte(expected), []byte(candidate))
}

// ComputeSignature is the signing function shared by the server and clients.
func ComputeSignature(fields SignedRequest, secret []byte, alg Algorithm) string {
	h := alg.newHash()
	h.Write([]byte(CanonicalString(fields, secret)))
	return hex.EncodeToString(h.Sum(nil))
}

// CanonicalString builds the string that gets hashed:
//
//	a=1&b=2&secret=<secret>
//
// Names are sorted byte-wise. "signature" and "file" are skipped.
func CanonicalString(fields SignedRequest, secret []byte) string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		if name == FieldSignature || name == FieldFile {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(fields[name])
		b.WriteByte('&')
	}
	b.WriteString("secret=")
	b.Write(secret)

	return b.String()
}

// FieldsFromForm converts parsed form values into a SignedRequest, taking
// the first value of each field. signature and file are dropped.
func FieldsFromForm(form url.Values) SignedRequest {
	fields := make(SignedRequest, len(form))
	for name, values := range form {
		if name == FieldSignature || name == FieldFile {
			continue
		}
		if len(values) == 0 {
			fields[name] = ""
			continue
		}
		fields[name] = values[0]
	}
	return fields
}
