package main

import (
	"crypto/elliptic"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/sonr-io/passkey/crypto/ecdsa"
	"github.com/sonr-io/passkey/types/webauthn"
)

// AttestationOutput is the printed form of a decoded attestation object.
type AttestationOutput struct {
	Format       string `json:"fmt"`
	CredentialID string `json:"credentialId"`
	KeyType      int64  `json:"kty"`
	Algorithm    int64  `json:"alg"`
	Curve        int64  `json:"crv"`
	X            string `json:"x"`
	Y            string `json:"y"`
	PublicKey    string `json:"publicKey"`
	UserPresent  bool   `json:"userPresent"`
	UserVerified bool   `json:"userVerified"`
	Counter      uint32 `json:"signCount"`
}

// SignatureOutput is the printed form of a decoded signature.
type SignatureOutput struct {
	AuthenticatorData string                        `json:"authenticatorData,omitempty"`
	ClientDataJSON    string                        `json:"clientDataJSON,omitempty"`
	ClientData        *webauthn.CollectedClientData `json:"clientData,omitempty"`
	R                 string                        `json:"r"`
	S                 string                        `json:"s"`
	LowS              bool                          `json:"lowS"`
}

func attestationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attestation",
		Short: "Inspect WebAuthn attestation objects",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "decode <base64>",
		Short: "Decode an attestation object and print the credential public key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := webauthn.DecodeBase64(args[0])
			if err != nil {
				return fmt.Errorf("invalid base64: %w", err)
			}
			out, err := decodeAttestation(raw)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	})
	return cmd
}

func decodeAttestation(raw []byte) (*AttestationOutput, error) {
	key, err := webauthn.DecodeAttestationBytes(raw)
	if err != nil {
		return nil, err
	}
	obj, err := webauthn.ParseAttestationObject(raw)
	if err != nil {
		return nil, err
	}

	flags := obj.AuthData.Flags
	return &AttestationOutput{
		Format:       obj.Format,
		CredentialID: base64.RawURLEncoding.EncodeToString(obj.AuthData.AttData.CredentialID),
		KeyType:      int64(key.KeyType),
		Algorithm:    int64(key.Algorithm),
		Curve:        int64(key.Curve),
		X:            hexutil.Encode(key.X[:]),
		Y:            hexutil.Encode(key.Y[:]),
		PublicKey:    key.Hex(),
		UserPresent:  flags.UserPresent(),
		UserVerified: flags.UserVerified(),
		Counter:      obj.AuthData.Counter,
	}, nil
}

func signatureCmd() *cobra.Command {
	var der bool

	cmd := &cobra.Command{
		Use:   "signature",
		Short: "Inspect passkey signatures",
	}
	decodeCmd := &cobra.Command{
		Use:   "decode <hex>",
		Short: "Decode an on-chain WebAuthn signature, or a DER signature with --der",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				out *SignatureOutput
				err error
			)
			if der {
				out, err = decodeRawSignature(args[0])
			} else {
				out, err = decodeChainSignature(args[0])
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	decodeCmd.Flags().BoolVar(&der, "der", false, "Input is an ASN.1 DER or raw r||s signature")
	cmd.AddCommand(decodeCmd)
	return cmd
}

func decodeChainSignature(s string) (*SignatureOutput, error) {
	data, err := hexutil.Decode(withHexPrefix(s))
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	decoded, err := webauthn.DecodeForChain(data)
	if err != nil {
		return nil, err
	}

	out := signatureOutput(decoded.Signature)
	out.AuthenticatorData = hexutil.Encode(decoded.AuthenticatorData)
	out.ClientDataJSON = string(decoded.ClientDataJSON)
	if clientData, err := webauthn.ParseClientData(decoded.ClientDataJSON); err == nil {
		out.ClientData = &clientData
	}
	return out, nil
}

func decodeRawSignature(s string) (*SignatureOutput, error) {
	sig, err := ecdsa.DecodeSignatureHex(s)
	if err != nil {
		return nil, err
	}
	return signatureOutput(sig), nil
}

func signatureOutput(sig ecdsa.Signature) *SignatureOutput {
	return &SignatureOutput{
		R:    "0x" + hex.EncodeToString(sig.R[:]),
		S:    "0x" + hex.EncodeToString(sig.S[:]),
		LowS: ecdsa.IsLowS(sig, elliptic.P256()),
	}
}

func withHexPrefix(s string) string {
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return s
	}
	return "0x" + s
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
