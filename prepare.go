package siwe

import (
	"fmt"
	"strings"
)

// PrepareMessage returns the canonical EIP-4361 text to be signed. It only
// fails when a nonce has to be generated and the entropy source fails.
func (m *Message) PrepareMessage() (string, error) {
	f, err := m.finalize()
	if err != nil {
		return "", err
	}
	return f.render(), nil
}

// String returns the canonical text, or "" when it cannot be produced.
func (m *Message) String() string {
	text, err := m.PrepareMessage()
	if err != nil {
		return ""
	}
	return text
}

// render expects a finalized message.
func (m *Message) render() string {
	greeting := fmt.Sprintf("%s wants you to sign in with your Ethereum account:", m.domain)

	var address string
	if m.address != nil {
		address = m.address.Hex()
	}
	headerArr := []string{greeting, address}

	if m.statement == nil {
		headerArr = append(headerArr, "\n")
	} else {
		headerArr = append(headerArr, fmt.Sprintf("\n%s\n", *m.statement))
	}

	header := strings.Join(headerArr, "\n")

	chainID := m.chainID
	if chainID == 0 {
		chainID = 1
	}

	bodyArr := []string{
		fmt.Sprintf("URI: %s", m.uri),
		fmt.Sprintf("Version: %s", m.version),
		fmt.Sprintf("Chain ID: %d", chainID),
		fmt.Sprintf("Nonce: %s", *m.nonce),
		fmt.Sprintf("Issued At: %s", *m.issuedAt),
	}

	if m.expirationTime != nil {
		bodyArr = append(bodyArr, fmt.Sprintf("Expiration Time: %s", *m.expirationTime))
	}

	if m.notBefore != nil {
		bodyArr = append(bodyArr, fmt.Sprintf("Not Before: %s", *m.notBefore))
	}

	if m.requestID != nil {
		bodyArr = append(bodyArr, fmt.Sprintf("Request ID: %s", *m.requestID))
	}

	if len(m.resources) > 0 {
		resourcesArr := make([]string, len(m.resources))
		for i, v := range m.resources {
			resourcesArr[i] = fmt.Sprintf("- %s", v)
		}
		bodyArr = append(bodyArr, fmt.Sprintf("Resources:\n%s", strings.Join(resourcesArr, "\n")))
	}

	body := strings.Join(bodyArr, "\n")

	return strings.Join([]string{header, body}, "\n")
}
