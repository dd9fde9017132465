package siwe

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"testing"
	"testing/iotest"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var expiresAt = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
var notBeforeAt = time.Date(2021, 10, 1, 0, 0, 0, 0, time.UTC)

func signedFields(address string) map[string]interface{} {
	fields := validFields()
	fields["address"] = address
	fields["statement"] = statement
	fields["expirationTime"] = expiresAt.Format(time.RFC3339)
	fields["notBefore"] = notBeforeAt.Format(time.RFC3339)
	fields["requestId"] = requestId
	fields["resources"] = resources
	return fields
}

func signedMessage(t *testing.T) (*Message, string, *ecdsa.PrivateKey) {
	t.Helper()
	privateKey, address := createWallet(t)

	message, err := NewMessage(signedFields(address))
	require.NoError(t, err)

	return message, signMessage(t, privateKey, prepare(t, message)), privateKey
}

func within() VerifyOption {
	return WithTimestamp(notBeforeAt.Add(time.Hour))
}

func TestVerifyReturnsSigner(t *testing.T) {
	message, signature, privateKey := signedMessage(t)

	recovered, err := message.VerifyContext(context.Background(), signature, within())
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(privateKey.PublicKey), recovered)

	recovered, err = message.VerifyEIP191(signature)
	require.NoError(t, err)
	assert.Equal(t, *message.GetAddress(), recovered)
}

func TestVerifyAcceptsRawRecoveryID(t *testing.T) {
	message, _, privateKey := signedMessage(t)

	signature, err := crypto.Sign(accounts.TextHash([]byte(prepare(t, message))), privateKey)
	require.NoError(t, err)

	recovered, err := message.VerifyContext(context.Background(), hexutil.Encode(signature), within())
	require.NoError(t, err)
	assert.Equal(t, *message.GetAddress(), recovered)
}

func TestVerifyTamperedFields(t *testing.T) {
	privateKey, address := createWallet(t)

	original, err := NewMessage(signedFields(address))
	require.NoError(t, err)
	signature := signMessage(t, privateKey, prepare(t, original))

	tampered := map[string]interface{}{
		"domain":    "evil.example.com",
		"statement": "Transfer everything",
		"uri":       "https://evil.example.com",
		"chainId":   10,
		"nonce":     "87654321",
		"issuedAt":  "2021-09-30T16:25:25Z",
		"requestId": "other-id",
		"resources": []string{"https://example.com/resources/3"},
	}

	for key, value := range tampered {
		t.Run(key, func(t *testing.T) {
			fields := signedFields(address)
			fields[key] = value

			message, err := NewMessage(fields)
			require.NoError(t, err)

			_, err = message.VerifyContext(context.Background(), signature, within())
			assert.ErrorIs(t, err, InvalidSignature)
			assert.EqualError(t, err, "Invalid Signature: Signer address must match message address")
		})
	}
}

func TestVerifyExpirationBoundary(t *testing.T) {
	message, signature, _ := signedMessage(t)

	_, err := message.VerifyContext(context.Background(), signature, WithTimestamp(expiresAt))
	assert.ErrorIs(t, err, ExpiredMessage)

	_, err = message.VerifyContext(context.Background(), signature, WithTimestamp(expiresAt.Add(time.Hour)))
	assert.ErrorIs(t, err, ExpiredMessage)

	_, err = message.VerifyContext(context.Background(), signature, WithTimestamp(expiresAt.Add(-time.Second)))
	assert.NoError(t, err)
}

func TestVerifyNotBeforeBoundary(t *testing.T) {
	message, signature, _ := signedMessage(t)

	_, err := message.VerifyContext(context.Background(), signature, WithTimestamp(notBeforeAt))
	assert.ErrorIs(t, err, NotYetValid)

	_, err = message.VerifyContext(context.Background(), signature, WithTimestamp(notBeforeAt.Add(time.Second)))
	assert.NoError(t, err)
}

func TestVerifyDefaultsToCurrentTime(t *testing.T) {
	message, signature, _ := signedMessage(t)

	// notBefore is in the past and expirationTime in 2030.
	_, err := message.VerifyContext(context.Background(), signature)
	assert.NoError(t, err)
}

func TestVerifyCheckOrder(t *testing.T) {
	message, signature, _ := signedMessage(t)
	garbage := "0xdeadbeef"
	late := WithTimestamp(expiresAt.Add(time.Hour))

	examples := []struct {
		name      string
		signature string
		opts      []VerifyOption
		kind      ErrorKind
	}{
		{"domain before nonce", garbage, []VerifyOption{WithDomain("other.com"), WithNonce("otherNonce1"), late}, DomainMismatch},
		{"nonce before expiry", garbage, []VerifyOption{WithDomain(domain), WithNonce("otherNonce1"), late}, NonceMismatch},
		{"expiry before signature", garbage, []VerifyOption{WithDomain(domain), WithNonce("32891756"), late}, ExpiredMessage},
		{"signature last", garbage, []VerifyOption{WithDomain(domain), WithNonce("32891756"), within()}, InvalidSignature},
		{"all match", signature, []VerifyOption{WithDomain(domain), WithNonce("32891756"), within()}, 0},
	}

	for _, example := range examples {
		t.Run(example.name, func(t *testing.T) {
			_, err := message.VerifyContext(context.Background(), example.signature, example.opts...)
			assert.Equal(t, example.kind, KindOf(err))
		})
	}
}

func TestVerifyPositional(t *testing.T) {
	message, signature, _ := signedMessage(t)
	when := notBeforeAt.Add(time.Hour)

	otherNonce := "otherNonce1"
	_, err := message.Verify(signature, nil, &otherNonce, &when)
	assert.ErrorIs(t, err, NonceMismatch)

	otherDomain := "other.com"
	_, err = message.Verify(signature, &otherDomain, nil, &when)
	assert.ErrorIs(t, err, DomainMismatch)
	assert.EqualError(t, err, `Domain Mismatch: expected "other.com", message has "example.com"`)

	expectedDomain, expectedNonce := domain, "32891756"
	recovered, err := message.Verify(signature, &expectedDomain, &expectedNonce, &when)
	require.NoError(t, err)
	assert.Equal(t, *message.GetAddress(), recovered)
}

func TestVerifyMalformedSession(t *testing.T) {
	fields := validFields()
	delete(fields, "address")

	message, err := DefaultConfig().NewMessage(fields)
	require.NoError(t, err, "a missing address is only rejected at verification")

	_, err = message.VerifyContext(context.Background(), "0xdeadbeef", WithNonce("otherNonce1"))

	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, MalformedSession, e.Kind)
	assert.Equal(t, []string{"address"}, e.Missing)
	assert.EqualError(t, err, "Malformed Session: missing address")
}

func TestVerifyMalformedSessionWithoutText(t *testing.T) {
	config := DefaultConfig()
	config.Rand = iotest.ErrReader(errors.New("entropy exhausted"))

	fields := validFields()
	delete(fields, "address")
	delete(fields, "nonce")

	message, err := config.NewMessage(fields)
	require.NoError(t, err)

	_, err = message.VerifyContext(context.Background(), "0xdeadbeef")

	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, []string{"message", "address"}, e.Missing)
	assert.ErrorContains(t, err, "Malformed Session")
}

func TestVerifyWithoutRequiredAddress(t *testing.T) {
	privateKey, _ := createWallet(t)

	fields := validFields()
	delete(fields, "address")

	message, err := Config{RequireAddress: false}.NewMessage(fields)
	require.NoError(t, err)

	recovered, err := message.VerifyContext(context.Background(), signMessage(t, privateKey, prepare(t, message)))
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(privateKey.PublicKey), recovered)
}

func TestVerifyRejectsBadSignatures(t *testing.T) {
	message, signature, _ := signedMessage(t)
	valid := hexutil.MustDecode(signature)

	badV := append([]byte(nil), valid...)
	badV[64] = 5

	zero := make([]byte, 65)
	zero[64] = 27

	examples := map[string]string{
		"empty":        "",
		"blank":        "   ",
		"not hex":      "signature",
		"no prefix":    signature[2:],
		"too short":    hexutil.Encode(valid[:64]),
		"too long":     hexutil.Encode(append(valid, 0)),
		"recovery id":  hexutil.Encode(badV),
		"zero r and s": hexutil.Encode(zero),
	}

	for name, example := range examples {
		t.Run(name, func(t *testing.T) {
			recovered, err := message.VerifyContext(context.Background(), example, within())
			assert.ErrorIs(t, err, InvalidSignature)
			assert.Equal(t, common.Address{}, recovered)
		})
	}
}

func TestVerifyHonoursCancellation(t *testing.T) {
	message, signature, _ := signedMessage(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := message.VerifyContext(ctx, signature, within())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, ErrorKind(0), KindOf(err))
}

func TestVerifyLogsRejections(t *testing.T) {
	message, signature, _ := signedMessage(t)

	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	_, err := message.VerifyContext(context.Background(), signature, WithNonce("otherNonce1"), WithLogger(logger))
	require.Error(t, err)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.DebugLevel, entry.Level)
	assert.Equal(t, "Nonce Mismatch", entry.Data["kind"])
	assert.Equal(t, domain, entry.Data["domain"])

	hook.Reset()
	_, err = message.VerifyContext(context.Background(), signature, within(), WithLogger(logger))
	require.NoError(t, err)
	assert.Empty(t, hook.AllEntries())
}

func TestVerifyUsesConfiguredLogger(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	config := DefaultConfig()
	config.Logger = logger

	message, err := config.NewMessage(validFields())
	require.NoError(t, err)

	_, err = message.VerifyContext(context.Background(), "0xdeadbeef", WithDomain("other.com"))
	assert.ErrorIs(t, err, DomainMismatch)
	assert.Len(t, hook.AllEntries(), 1)
}

type recordingCaller struct {
	calls int
}

var _ ethereum.ContractCaller = (*recordingCaller)(nil)

func (c *recordingCaller) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	c.calls++
	return nil, errors.New("unexpected call")
}

func TestVerifyContractCallerDoesNotMaskMismatch(t *testing.T) {
	privateKey, address := createWallet(t)
	otherKey, _ := createWallet(t)

	message, err := NewMessage(signedFields(address))
	require.NoError(t, err)
	signature := signMessage(t, otherKey, prepare(t, message))

	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	caller := &recordingCaller{}

	_, err = message.VerifyContext(context.Background(), signature, within(), WithContractCaller(caller), WithLogger(logger))
	assert.ErrorIs(t, err, InvalidSignature)
	assert.Zero(t, caller.calls)

	messages := make([]string, 0, len(hook.AllEntries()))
	for _, entry := range hook.AllEntries() {
		messages = append(messages, entry.Message)
	}
	assert.Contains(t, messages, "contract wallet verification skipped")

	_, err = message.VerifyContext(context.Background(), signMessage(t, privateKey, prepare(t, message)), within(), WithContractCaller(caller))
	assert.NoError(t, err)
}

func TestValidAt(t *testing.T) {
	message, _, _ := signedMessage(t)

	ok, err := message.ValidAt(notBeforeAt.Add(time.Minute))
	assert.True(t, ok)
	assert.NoError(t, err)

	ok, err = message.ValidAt(expiresAt)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ExpiredMessage)

	ok, err = message.ValidNow()
	assert.True(t, ok)
	assert.NoError(t, err)
}
