// Package account bootstraps smart accounts: it creates the passkey, upgrades
// the bootstrap EOA through the relay and falls back to the bootstrap key when
// the relay is unavailable.
package account

import (
	"context"
	"encoding/json"
	"time"

	sdkerrors "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/sonr-io/passkey/client/errors"
	"github.com/sonr-io/passkey/client/store"
)

// State is a step of the upgrade state machine.
type State string

const (
	StateInit               State = "init"
	StateEphemeralGenerated State = "ephemeral_generated"
	StateCredentialCreated  State = "credential_created"
	StateUpgradePrepared    State = "upgrade_prepared"
	StateUpgradeSigned      State = "upgrade_signed"
	StateUpgraded           State = "upgraded"
	StateFallbackEOA        State = "fallback_eoa"
)

// Terminal reports whether Upgrade can end in s.
func (s State) Terminal() bool {
	return s == StateUpgraded || s == StateFallbackEOA
}

// Account is the persisted record of a wallet account.
type Account struct {
	Tag           string         `json:"tag"`
	Address       common.Address `json:"address"`
	ChainID       uint64         `json:"chainId"`
	CredentialID  hexutil.Bytes  `json:"credentialId"`
	PublicKey     string         `json:"publicKey"`
	Delegation    common.Address `json:"delegation,omitempty"`
	IsSmartWallet bool           `json:"isSmartWallet"`
	State         State          `json:"state"`
	FallbackCause string         `json:"fallbackCause,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// Signer produces the signature a relay expects over a bundle digest.
type Signer interface {
	SignDigest(ctx context.Context, digest common.Hash) (hexutil.Bytes, error)
}

// Session is the account a caller operates on together with its signer. It
// is passed explicitly into every transaction and trade call.
type Session struct {
	Account *Account
	Signer  Signer
}

// ChainID is the chain the session account lives on.
func (s *Session) ChainID() uint64 {
	return s.Account.ChainID
}

// Address is the session account address.
func (s *Session) Address() common.Address {
	return s.Account.Address
}

func recordKey(tag string) string {
	return "account:" + tag
}

func secretService(tag string) string {
	return "ephemeral:" + tag
}

func loadRecord(ctx context.Context, records store.KeyValueStore, tag string) (*Account, error) {
	raw, err := records.Get(ctx, recordKey(tag))
	if err != nil {
		if sdkerrors.IsOf(err, store.ErrNotFound) {
			return nil, sdkerrors.Wrapf(errors.ErrAccountNotFound, "tag %q", tag)
		}
		return nil, err
	}

	var acct Account
	if err := json.Unmarshal(raw, &acct); err != nil {
		return nil, sdkerrors.Wrapf(errors.ErrAccountNotFound, "decode %q: %v", tag, err)
	}
	return &acct, nil
}

func saveRecord(ctx context.Context, records store.KeyValueStore, acct *Account) error {
	acct.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(acct)
	if err != nil {
		return err
	}
	return records.Set(ctx, recordKey(acct.Tag), raw)
}
