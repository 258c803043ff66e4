package signing

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// EnvelopeVersion is the current signature envelope format.
const EnvelopeVersion = "1"

// Header is the first line of a signature envelope.
type Header struct {
	Version string `json:"version"`
	KeyID   string `json:"key_id,omitempty"`
}

// Envelope is a parsed detached signature: one JSON header line followed
// by the hex-encoded signature.
type Envelope struct {
	Header    Header
	Signature []byte
}

// WriteEnvelope serializes a signature with its header.
func WriteEnvelope(sig []byte, keyID string) []byte {
	headerBytes, _ := json.Marshal(Header{Version: EnvelopeVersion, KeyID: keyID})
	return []byte(string(headerBytes) + "\n" + hex.EncodeToString(sig) + "\n")
}

// ReadEnvelope parses a detached signature file.
func ReadEnvelope(data []byte) (*Envelope, error) {
	content := strings.TrimSpace(string(data))

	lines := strings.SplitN(content, "\n", 2)
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "{") {
		return nil, fmt.Errorf("invalid signature format: expected header and payload")
	}

	var header Header
	if err := json.Unmarshal([]byte(lines[0]), &header); err != nil {
		return nil, fmt.Errorf("invalid signature header: %w", err)
	}
	if header.Version == "" {
		return nil, fmt.Errorf("signature header missing version")
	}

	sig, err := hex.DecodeString(strings.TrimSpace(lines[1]))
	if err != nil {
		return nil, fmt.Errorf("invalid signature hex: %w", err)
	}

	return &Envelope{Header: header, Signature: sig}, nil
}

// SignPolicy produces a detached signature envelope for a policy document.
func SignPolicy(policyData []byte, privateKeyPath, keyID string) ([]byte, error) {
	sig, err := Sign(policyData, privateKeyPath)
	if err != nil {
		return nil, err
	}
	return WriteEnvelope(sig, keyID), nil
}

// VerifyPolicy checks a policy document against a detached envelope.
func VerifyPolicy(policyData, envelopeData []byte, publicKeyPath string) (bool, error) {
	env, err := ReadEnvelope(envelopeData)
	if err != nil {
		return false, err
	}
	return Verify(policyData, env.Signature, publicKeyPath)
}
