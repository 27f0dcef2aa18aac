package webauthn

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
)

// CeremonyType is the clientDataJSON type member.
type CeremonyType string

const (
	CreateCeremony CeremonyType = "webauthn.create"
	AssertCeremony CeremonyType = "webauthn.get"
)

// CollectedClientData is the client data an authenticator signs over. Field
// order matches the serialization on-chain verifiers reconstruct.
type CollectedClientData struct {
	Type        CeremonyType `json:"type"`
	Challenge   string       `json:"challenge"`
	Origin      string       `json:"origin"`
	CrossOrigin bool         `json:"crossOrigin"`
}

// EncodeChallenge returns base64url without padding.
func EncodeChallenge(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// NewAssertionClientData builds the client data for signing a digest.
func NewAssertionClientData(digest []byte, origin string) CollectedClientData {
	return CollectedClientData{
		Type:        AssertCeremony,
		Challenge:   EncodeChallenge(digest),
		Origin:      origin,
		CrossOrigin: false,
	}
}

// JSON serializes the client data without HTML escaping, producing
// {"type":"…","challenge":"…","origin":"…","crossOrigin":false}.
func (c CollectedClientData) JSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// ParseClientData decodes clientDataJSON.
func ParseClientData(raw []byte) (CollectedClientData, error) {
	var c CollectedClientData
	err := json.Unmarshal(raw, &c)
	return c, err
}

// AssertionDigest is sha256(authenticatorData ‖ sha256(clientDataJSON)), the
// digest an ES256 authenticator signs.
func AssertionDigest(authenticatorData, clientDataJSON []byte) [32]byte {
	clientDataHash := sha256.Sum256(clientDataJSON)
	msg := make([]byte, 0, len(authenticatorData)+len(clientDataHash))
	msg = append(msg, authenticatorData...)
	msg = append(msg, clientDataHash[:]...)
	return sha256.Sum256(msg)
}
