package siwe

import (
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

// Message is a validated EIP-4361 message. It is never mutated after
// construction. When nonce or issuedAt were not supplied, the first call
// that needs the canonical text fills them in on a finalized copy, and
// every later call reuses that copy.
type Message struct {
	domain  string
	address *common.Address
	uri     string
	version string

	statement *string
	nonce     *string
	chainID   int

	issuedAt       *string
	expirationTime *string
	notBefore      *string

	requestID *string
	resources []string

	requireAddress bool
	nonces         NonceGenerator
	now            func() time.Time
	log            logrus.FieldLogger

	final atomic.Pointer[Message]
}

// finalize returns m itself when nothing needs defaulting, otherwise the
// single finalized copy shared by all callers.
func (m *Message) finalize() (*Message, error) {
	if m.nonce != nil && m.issuedAt != nil {
		return m, nil
	}
	if f := m.final.Load(); f != nil {
		return f, nil
	}

	f := m.clone()
	if f.nonce == nil {
		nonce, err := m.nonces.Generate()
		if err != nil {
			return nil, err
		}
		f.nonce = &nonce
	}
	if f.issuedAt == nil {
		issuedAt := m.now().Format(time.RFC3339)
		f.issuedAt = &issuedAt
	}

	if !m.final.CompareAndSwap(nil, f) {
		return m.final.Load(), nil
	}
	return f, nil
}

func (m *Message) resolved() *Message {
	if f := m.final.Load(); f != nil {
		return f
	}
	return m
}

func (m *Message) clone() *Message {
	var resources []string
	if m.resources != nil {
		resources = append([]string(nil), m.resources...)
	}
	return &Message{
		domain:         m.domain,
		address:        m.address,
		uri:            m.uri,
		version:        m.version,
		statement:      m.statement,
		nonce:          m.nonce,
		chainID:        m.chainID,
		issuedAt:       m.issuedAt,
		expirationTime: m.expirationTime,
		notBefore:      m.notBefore,
		requestID:      m.requestID,
		resources:      resources,
		requireAddress: m.requireAddress,
		nonces:         m.nonces,
		now:            m.now,
		log:            m.log,
	}
}

func (m *Message) GetDomain() string {
	return m.domain
}

func (m *Message) GetAddress() *common.Address {
	if m.address != nil {
		ret := *m.address
		return &ret
	}
	return nil
}

func (m *Message) GetURI() string {
	return m.uri
}

func (m *Message) GetVersion() string {
	return m.version
}

func (m *Message) GetStatement() *string {
	return copyString(m.statement)
}

// GetNonce returns nil until the nonce was supplied or generated.
func (m *Message) GetNonce() *string {
	return copyString(m.resolved().nonce)
}

// GetChainID returns the stored chain ID, 0 when none was given. The
// canonical text renders an unset chain ID as 1.
func (m *Message) GetChainID() int {
	return m.chainID
}

// GetIssuedAt returns nil until the timestamp was supplied or defaulted.
func (m *Message) GetIssuedAt() *string {
	return copyString(m.resolved().issuedAt)
}

func (m *Message) GetExpirationTime() *string {
	return copyString(m.expirationTime)
}

func (m *Message) getExpirationTime() *time.Time {
	return parseTime(m.expirationTime)
}

func (m *Message) GetNotBefore() *string {
	return copyString(m.notBefore)
}

func (m *Message) getNotBefore() *time.Time {
	return parseTime(m.notBefore)
}

func (m *Message) GetRequestID() *string {
	return copyString(m.requestID)
}

func (m *Message) GetResources() []string {
	if m.resources == nil {
		return nil
	}
	return append([]string(nil), m.resources...)
}

// AddressRequired reports whether Verify treats a missing address as a
// malformed session.
func (m *Message) AddressRequired() bool {
	return m.requireAddress
}
