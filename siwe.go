// Package siwe parses, builds and verifies Sign-In with Ethereum (EIP-4361)
// messages.
package siwe

// InitMessage builds a message from the four mandatory fields plus the
// optional ones in options, using DefaultConfig.
func InitMessage(domain, address, uri, version string, options map[string]interface{}) (*Message, error) {
	return DefaultConfig().InitMessage(domain, address, uri, version, options)
}

func (c Config) InitMessage(domain, address, uri, version string, options map[string]interface{}) (*Message, error) {
	fields := make(map[string]interface{}, len(options)+4)
	for k, v := range options {
		fields[k] = v
	}
	fields["domain"] = domain
	fields["address"] = address
	fields["uri"] = uri
	fields["version"] = version

	return c.NewMessage(fields)
}

// NewMessage builds a message from a field set using DefaultConfig.
func NewMessage(fields map[string]interface{}) (*Message, error) {
	return DefaultConfig().NewMessage(fields)
}

// NewMessage validates fields and returns the message. Keys are domain,
// address, statement, uri, version, chainId, nonce, issuedAt,
// expirationTime, notBefore, requestId and resources.
func (c Config) NewMessage(fields map[string]interface{}) (*Message, error) {
	return c.validate(fields)
}

// ParseMessage parses EIP-4361 text with the strict grammar and requires an
// address.
func ParseMessage(message string) (*Message, error) {
	return DefaultConfig().ParseMessage(message)
}

func (c Config) ParseMessage(message string) (*Message, error) {
	fields, err := c.parser().Parse(message)
	if err != nil {
		return nil, err
	}

	return c.NewMessage(fields)
}
