package siwe

import (
	"context"
	"fmt"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type verifyOptions struct {
	domain    *string
	nonce     *string
	timestamp *time.Time
	caller    ethereum.ContractCaller
	log       logrus.FieldLogger
}

type VerifyOption func(*verifyOptions)

// WithDomain rejects messages whose domain differs from domain.
func WithDomain(domain string) VerifyOption {
	return func(o *verifyOptions) { o.domain = &domain }
}

// WithNonce rejects messages whose nonce differs from nonce.
func WithNonce(nonce string) VerifyOption {
	return func(o *verifyOptions) { o.nonce = &nonce }
}

// WithTimestamp checks the validity window at t instead of the current time.
func WithTimestamp(t time.Time) VerifyOption {
	return func(o *verifyOptions) { o.timestamp = &t }
}

// WithContractCaller supplies the chain access needed for EIP-1271 contract
// wallets. Contract wallet signatures are not verified yet, so a signer
// mismatch still fails with InvalidSignature.
func WithContractCaller(caller ethereum.ContractCaller) VerifyOption {
	return func(o *verifyOptions) { o.caller = caller }
}

func WithLogger(log logrus.FieldLogger) VerifyOption {
	return func(o *verifyOptions) { o.log = log }
}

// Verify is VerifyContext with positional options; nil values are skipped.
func (m *Message) Verify(signature string, domain *string, nonce *string, timestamp *time.Time) (common.Address, error) {
	var opts []VerifyOption
	if domain != nil {
		opts = append(opts, WithDomain(*domain))
	}
	if nonce != nil {
		opts = append(opts, WithNonce(*nonce))
	}
	if timestamp != nil {
		opts = append(opts, WithTimestamp(*timestamp))
	}
	return m.VerifyContext(context.Background(), signature, opts...)
}

// VerifyContext checks signature against the canonical text and returns the
// signer address. Checks run in a fixed order and the first failure is
// returned: session completeness, domain, nonce, expiration, not-before,
// signature recovery, signer address.
func (m *Message) VerifyContext(ctx context.Context, signature string, opts ...VerifyOption) (common.Address, error) {
	o := verifyOptions{log: m.log}
	for _, opt := range opts {
		opt(&o)
	}

	address, err := m.verify(ctx, signature, &o)
	if err != nil {
		o.log.WithFields(logrus.Fields{
			"domain": m.domain,
			"kind":   KindOf(err).String(),
		}).WithError(err).Debug("siwe verification rejected")
		return common.Address{}, err
	}
	return address, nil
}

func (m *Message) verify(ctx context.Context, signature string, o *verifyOptions) (common.Address, error) {
	var missing []string
	f, prepareErr := m.finalize()
	if prepareErr != nil {
		missing = append(missing, "message")
	}
	if m.requireAddress && m.address == nil {
		missing = append(missing, "address")
	}
	if len(missing) > 0 {
		return common.Address{}, &Error{Kind: MalformedSession, Missing: missing, Err: prepareErr}
	}

	if o.domain != nil && *o.domain != f.domain {
		return common.Address{}, &Error{
			Kind:   DomainMismatch,
			Reason: fmt.Sprintf("expected %q, message has %q", *o.domain, f.domain),
		}
	}

	if o.nonce != nil && *o.nonce != *f.nonce {
		return common.Address{}, &Error{Kind: NonceMismatch, Reason: "message nonce does not match the expected nonce"}
	}

	when := time.Now().UTC()
	if o.timestamp != nil {
		when = *o.timestamp
	}
	if _, err := f.ValidAt(when); err != nil {
		return common.Address{}, err
	}

	if err := ctx.Err(); err != nil {
		return common.Address{}, err
	}

	address, err := f.checkSignature(f.render(), signature)
	if err != nil && o.caller != nil && f.address != nil {
		// EIP-1271 fallback is not attempted; see CheckContractWalletSignature.
		o.log.WithField("address", f.address.Hex()).Debug("contract wallet verification skipped")
	}
	return address, err
}

// ValidNow is ValidAt with the current time.
func (m *Message) ValidNow() (bool, error) {
	return m.ValidAt(time.Now().UTC())
}

// ValidAt reports whether when falls inside the validity window. A message
// expires at its expiration time and becomes valid strictly after its
// not-before time.
func (m *Message) ValidAt(when time.Time) (bool, error) {
	if expirationTime := m.getExpirationTime(); expirationTime != nil {
		if !when.Before(*expirationTime) {
			return false, &Error{Kind: ExpiredMessage, Reason: "Message expired"}
		}
	}

	if notBefore := m.getNotBefore(); notBefore != nil {
		if !when.After(*notBefore) {
			return false, &Error{Kind: NotYetValid, Reason: "Message not yet valid"}
		}
	}

	return true, nil
}

// VerifyEIP191 only checks the signature: it recovers the signer of the
// canonical text and compares it with the message address, if any.
func (m *Message) VerifyEIP191(signature string) (common.Address, error) {
	f, err := m.finalize()
	if err != nil {
		return common.Address{}, &Error{Kind: MalformedSession, Missing: []string{"message"}, Err: err}
	}
	return f.checkSignature(f.render(), signature)
}

func (m *Message) checkSignature(text, signature string) (common.Address, error) {
	address, err := recoverAddress(text, signature)
	if err != nil {
		return common.Address{}, &Error{Kind: InvalidSignature, Reason: err.Error(), Err: err}
	}

	if m.address != nil && address != *m.address {
		return common.Address{}, &Error{Kind: InvalidSignature, Reason: "Signer address must match message address"}
	}

	return address, nil
}

// recoverAddress recovers the signer of an EIP-191 personal message. V may
// be 0/1 or 27/28.
func recoverAddress(message, signature string) (common.Address, error) {
	if isEmpty(&signature) {
		return common.Address{}, errors.New("Signature cannot be empty")
	}

	sig, err := hexutil.Decode(signature)
	if err != nil {
		return common.Address{}, errors.Wrap(err, "Failed to decode signature")
	}
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, errors.Errorf("Signature must be %d bytes, got %d", crypto.SignatureLength, len(sig))
	}

	// Ref: https://github.com/ethereum/go-ethereum/blob/55599ee95d4151a2502465e0afc7c47bd1acba77/internal/ethapi/api.go#L442
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	if sig[crypto.RecoveryIDOffset] > 1 {
		return common.Address{}, errors.New("Invalid signature recovery byte")
	}

	pkey, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return common.Address{}, errors.Wrap(err, "Failed to recover public key from signature")
	}

	return crypto.PubkeyToAddress(*pkey), nil
}
