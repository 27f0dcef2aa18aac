package account

import (
	"context"
	"fmt"
	"time"

	sdkerrors "cosmossdk.io/errors"
	"cosmossdk.io/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/sonr-io/passkey/client/auth"
	"github.com/sonr-io/passkey/client/config"
	"github.com/sonr-io/passkey/client/errors"
	"github.com/sonr-io/passkey/client/rpc"
	"github.com/sonr-io/passkey/client/store"
	"github.com/sonr-io/passkey/crypto/ephemeral"
)

// KeyTypeWebAuthnP256 is the authorizeKeys type of a passkey.
const KeyTypeWebAuthnP256 = "webauthn-p256"

// Relay is the subset of the relay gateway the upgrade flow uses.
type Relay interface {
	GetCapabilities(ctx context.Context, chainID uint64) (rpc.ChainCapabilities, error)
	PrepareUpgradeAccount(ctx context.Context, req rpc.PrepareUpgradeRequest) (*rpc.PrepareUpgradeResponse, error)
	UpgradeAccount(ctx context.Context, req rpc.UpgradeAccountRequest) error
	IsDelegatedTo(ctx context.Context, address, delegate common.Address) (bool, error)
}

// Passkeys creates credentials and binds signers to them.
type Passkeys interface {
	Create(ctx context.Context, label string) (*auth.Credential, error)
	Signer(credentialID []byte) *auth.PasskeySigner
}

var (
	_ Relay    = (*rpc.Gateway)(nil)
	_ Passkeys = (*auth.Manager)(nil)
)

// Options wires a Coordinator.
type Options struct {
	Network  config.NetworkConfig
	Relay    Relay
	Passkeys Passkeys
	Records  store.KeyValueStore
	Secrets  store.SecretStore
	Logger   log.Logger
}

// Coordinator runs account upgrades. Each call owns its ephemeral key; the
// coordinator itself holds no per-account state.
type Coordinator struct {
	chainID    uint64
	delegation common.Address
	relay      Relay
	passkeys   Passkeys
	records    store.KeyValueStore
	secrets    store.SecretStore
	logger     log.Logger

	// generateKey is swapped in tests to observe the ephemeral key.
	generateKey func() (*ephemeral.Key, error)
}

// NewCoordinator returns a coordinator for opts.Network.
func NewCoordinator(opts Options) *Coordinator {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Coordinator{
		chainID:     opts.Network.ChainID,
		delegation:  opts.Network.Delegation(),
		relay:       opts.Relay,
		passkeys:    opts.Passkeys,
		records:     opts.Records,
		secrets:     opts.Secrets,
		logger:      logger.With(log.ModuleKey, "account"),
		generateKey: ephemeral.Generate,
	}
}

// Upgrade creates a passkey-controlled smart account for tag.
//
// If the relay fails while preparing, signing or submitting the upgrade, the
// account is persisted as a plain EOA controlled by the retained bootstrap
// key, and Upgrade returns it with a nil error. RetryUpgrade completes it
// later. A failed credential ceremony fails the call and leaves nothing
// behind.
func (c *Coordinator) Upgrade(ctx context.Context, tag string) (*Account, error) {
	key, err := c.generateKey()
	if err != nil {
		return nil, err
	}
	acct := &Account{
		Tag:       tag,
		Address:   key.Address(),
		ChainID:   c.chainID,
		State:     StateInit,
		CreatedAt: time.Now().UTC(),
	}
	c.transition(acct, StateEphemeralGenerated)

	cred, err := c.passkeys.Create(ctx, tag)
	if err != nil {
		key.Destroy()
		c.logger.Error("credential creation failed", "tag", tag, "error", err)
		return nil, err
	}
	acct.CredentialID = cred.ID
	acct.PublicKey = cred.PublicKeyHex()
	c.transition(acct, StateCredentialCreated)

	if err := c.upgrade(ctx, acct, key); err != nil {
		return c.fallback(ctx, acct, key, err)
	}

	key.Destroy()
	if err := saveRecord(context.WithoutCancel(ctx), c.records, acct); err != nil {
		return nil, err
	}
	c.logger.Info("account upgraded", "tag", tag, "address", acct.Address, "delegation", acct.Delegation)
	return acct, nil
}

// RetryUpgrade completes the upgrade of an account left in FallbackEOA. An
// account whose code already delegates to the target contract is marked
// upgraded without another relay round trip.
func (c *Coordinator) RetryUpgrade(ctx context.Context, tag string) (*Account, error) {
	acct, err := c.Load(ctx, tag)
	if err != nil {
		return nil, err
	}
	if acct.IsSmartWallet {
		return acct, sdkerrors.Wrapf(errors.ErrAlreadyUpgraded, "tag %q", tag)
	}

	key, err := c.restoreKey(ctx, acct)
	if err != nil {
		return nil, err
	}
	defer key.Destroy()

	delegation, err := c.resolveDelegation(ctx)
	if err == nil {
		delegated, err := c.relay.IsDelegatedTo(ctx, acct.Address, delegation)
		if err != nil {
			c.logger.Warn("delegation check failed", "tag", tag, "error", err)
		}
		if delegated {
			acct.Delegation = delegation
			return c.complete(ctx, acct)
		}
	}

	if err := c.upgrade(ctx, acct, key); err != nil {
		acct.State = StateFallbackEOA
		acct.FallbackCause = err.Error()
		if saveErr := saveRecord(context.WithoutCancel(ctx), c.records, acct); saveErr != nil {
			c.logger.Error("persist fallback record", "tag", tag, "error", saveErr)
		}
		return acct, err
	}
	return c.complete(ctx, acct)
}

// Load returns the persisted account for tag.
func (c *Coordinator) Load(ctx context.Context, tag string) (*Account, error) {
	return loadRecord(ctx, c.records, tag)
}

// Signer returns the passkey signer of an upgraded account, or the retained
// bootstrap key of an account in FallbackEOA.
func (c *Coordinator) Signer(ctx context.Context, acct *Account) (Signer, error) {
	if acct.IsSmartWallet {
		return c.passkeys.Signer(acct.CredentialID), nil
	}
	key, err := c.restoreKey(ctx, acct)
	if err != nil {
		return nil, err
	}
	return &EphemeralSigner{key: key}, nil
}

// Session loads tag and binds its signer.
func (c *Coordinator) Session(ctx context.Context, tag string) (*Session, error) {
	acct, err := c.Load(ctx, tag)
	if err != nil {
		return nil, err
	}
	signer, err := c.Signer(ctx, acct)
	if err != nil {
		return nil, err
	}
	return &Session{Account: acct, Signer: signer}, nil
}

// upgrade runs delegation lookup, prepare, sign and submit. Every error it
// returns is an ErrUpgradePrepareFailed.
func (c *Coordinator) upgrade(ctx context.Context, acct *Account, key *ephemeral.Key) error {
	delegation, err := c.resolveDelegation(ctx)
	if err != nil {
		return errors.WrapError(err, errors.ErrUpgradePrepareFailed, "resolve delegation")
	}
	acct.Delegation = delegation

	prepared, err := c.relay.PrepareUpgradeAccount(ctx, rpc.PrepareUpgradeRequest{
		Address:    acct.Address,
		ChainID:    hexutil.Uint64(acct.ChainID),
		Delegation: &delegation,
		Capabilities: rpc.UpgradeCapabilities{
			AuthorizeKeys: []rpc.AuthorizeKey{{
				Type:        KeyTypeWebAuthnP256,
				Role:        string(auth.RoleAdmin),
				PublicKey:   acct.PublicKey,
				Permissions: []any{},
			}},
		},
	})
	if err != nil {
		return errors.WrapError(err, errors.ErrUpgradePrepareFailed, "prepare upgrade")
	}
	c.transition(acct, StateUpgradePrepared)

	sigs, err := ephemeral.SignRawDigests(key, prepared.Digests)
	if err != nil {
		return errors.WrapError(err, errors.ErrUpgradePrepareFailed, "sign upgrade digests")
	}
	c.transition(acct, StateUpgradeSigned)

	err = c.relay.UpgradeAccount(ctx, rpc.UpgradeAccountRequest{
		Context:    prepared.Context,
		Signatures: sigs,
	})
	if err != nil {
		return errors.WrapError(err, errors.ErrUpgradePrepareFailed, "submit upgrade")
	}

	acct.IsSmartWallet = true
	acct.FallbackCause = ""
	c.transition(acct, StateUpgraded)
	return nil
}

// resolveDelegation prefers the relay-advertised contract over the
// configured default.
func (c *Coordinator) resolveDelegation(ctx context.Context) (common.Address, error) {
	caps, err := c.relay.GetCapabilities(ctx, c.chainID)
	if err != nil {
		c.logger.Warn("capabilities unavailable, using default delegation", "chain", c.chainID, "error", err)
	} else if addr, ok := caps.Contract(rpc.ContractAccountProxy, rpc.ContractDelegation); ok {
		return addr, nil
	}

	if c.delegation == (common.Address{}) {
		if err != nil {
			return common.Address{}, err
		}
		return common.Address{}, fmt.Errorf("no delegation contract for chain %d", c.chainID)
	}
	return c.delegation, nil
}

// fallback retains key in the secret store and persists acct as an EOA.
func (c *Coordinator) fallback(ctx context.Context, acct *Account, key *ephemeral.Key, cause error) (*Account, error) {
	defer key.Destroy()
	ctx = context.WithoutCancel(ctx)

	exported, err := key.Export()
	if err != nil {
		return nil, err
	}
	err = c.secrets.SetSecret(ctx, secretService(acct.Tag), store.Secret{
		Username: acct.Address.Hex(),
		Password: exported,
	})
	if err != nil {
		return nil, sdkerrors.Wrapf(err, "retain bootstrap key for %q", acct.Tag)
	}

	acct.IsSmartWallet = false
	acct.FallbackCause = cause.Error()
	c.transition(acct, StateFallbackEOA)
	if err := saveRecord(ctx, c.records, acct); err != nil {
		return nil, err
	}

	c.logger.Warn("upgrade failed, account left as EOA", "tag", acct.Tag, "address", acct.Address, "cause", cause)
	return acct, nil
}

func (c *Coordinator) complete(ctx context.Context, acct *Account) (*Account, error) {
	acct.IsSmartWallet = true
	acct.FallbackCause = ""
	c.transition(acct, StateUpgraded)

	ctx = context.WithoutCancel(ctx)
	if err := saveRecord(ctx, c.records, acct); err != nil {
		return nil, err
	}
	if err := c.secrets.DeleteSecret(ctx, secretService(acct.Tag)); err != nil {
		c.logger.Error("delete retained key", "tag", acct.Tag, "error", err)
	}
	c.logger.Info("account upgrade completed", "tag", acct.Tag, "address", acct.Address)
	return acct, nil
}

func (c *Coordinator) restoreKey(ctx context.Context, acct *Account) (*ephemeral.Key, error) {
	secret, err := c.secrets.GetSecret(ctx, secretService(acct.Tag))
	if err != nil {
		return nil, err
	}
	key, err := ephemeral.Restore(secret.Password)
	if err != nil {
		return nil, err
	}
	if key.Address() != acct.Address {
		key.Destroy()
		return nil, sdkerrors.Wrapf(ephemeral.ErrInvalidKey, "retained key controls %s, account is %s", key.Address(), acct.Address)
	}
	return key, nil
}

func (c *Coordinator) transition(acct *Account, next State) {
	c.logger.Debug("upgrade state", "tag", acct.Tag, "from", acct.State, "to", next)
	acct.State = next
}
