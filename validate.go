package siwe

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// validate builds a Message from fields, checking fields in message order
// and stopping at the first failure.
func (c Config) validate(fields map[string]interface{}) (*Message, error) {
	m := &Message{
		requireAddress: c.RequireAddress,
		nonces:         NonceGenerator{Rand: c.Rand},
		now:            c.clock(),
		log:            c.logger(),
	}

	var err error
	if m.domain, err = validateDomain(fields); err != nil {
		return nil, err
	}
	if m.address, err = validateAddress(fields); err != nil {
		return nil, err
	}
	if m.statement, err = validateStatement(fields); err != nil {
		return nil, err
	}
	if m.uri, err = validateURIField(fields); err != nil {
		return nil, err
	}
	if m.version, err = validateVersion(fields); err != nil {
		return nil, err
	}
	if m.chainID, err = validateChainID(fields); err != nil {
		return nil, err
	}
	if m.nonce, err = validateNonce(fields); err != nil {
		return nil, err
	}
	if m.issuedAt, err = parseTimestamp(fields, "issuedAt"); err != nil {
		return nil, err
	}
	if m.expirationTime, err = parseTimestamp(fields, "expirationTime"); err != nil {
		return nil, err
	}
	if m.notBefore, err = parseTimestamp(fields, "notBefore"); err != nil {
		return nil, err
	}
	if m.requestID, err = validateRequestID(fields); err != nil {
		return nil, err
	}
	if m.resources, err = validateResources(fields); err != nil {
		return nil, err
	}

	return m, nil
}

// validateDomain accepts an RFC 3986 authority: optional userinfo, host and
// optional port.
func validateDomain(fields map[string]interface{}) (string, error) {
	domain, err := requiredString(fields, "domain")
	if err != nil {
		return "", err
	}
	if isEmpty(&domain) {
		return "", errInvalidField("domain", "Message `domain` must not be empty", nil)
	}
	if strings.ContainsAny(domain, " \t\r\n/?#") {
		return "", errInvalidFormat("domain", nil)
	}
	u, err := url.Parse("//" + domain)
	if err != nil {
		return "", errInvalidFormat("domain", err)
	}
	if u.Host == "" {
		return "", errInvalidFormat("domain", nil)
	}
	return domain, nil
}

func validateAddress(fields map[string]interface{}) (*common.Address, error) {
	switch val := fields["address"].(type) {
	case nil:
		return nil, nil
	case common.Address:
		return &val, nil
	case *common.Address:
		if val == nil {
			return nil, nil
		}
		ret := *val
		return &ret, nil
	case string:
		if val == "" {
			return nil, nil
		}
		if !common.IsHexAddress(val) || common.HexToAddress(val).Hex() != val {
			return nil, errInvalidField("address", "Message `address` must be in EIP-55 format", nil)
		}
		ret := common.HexToAddress(val)
		return &ret, nil
	default:
		return nil, errInvalidField("address", "`address` must be a string or common.Address", nil)
	}
}

// validateStatement keeps whitespace-only statements; they are signed as is.
func validateStatement(fields map[string]interface{}) (*string, error) {
	statement, err := optionalString(fields, "statement")
	if err != nil || statement == nil {
		return nil, err
	}
	if strings.ContainsAny(*statement, "\r\n") {
		return nil, errInvalidField("statement", "Message `statement` must not contain line breaks", nil)
	}
	return statement, nil
}

func validateURIField(fields map[string]interface{}) (string, error) {
	uri, err := requiredString(fields, "uri")
	if err != nil {
		return "", err
	}
	if err := validateURI(uri); err != nil {
		return "", errInvalidFormat("uri", err)
	}
	return uri, nil
}

// validateURI requires an absolute URI that fits on a single line.
func validateURI(value string) error {
	if strings.ContainsAny(value, " \t\r\n") {
		return fmt.Errorf("URI %q contains whitespace", value)
	}
	u, err := url.Parse(value)
	if err != nil {
		return err
	}
	if u.Scheme == "" {
		return fmt.Errorf("URI %q is not absolute", value)
	}
	return nil
}

func validateVersion(fields map[string]interface{}) (string, error) {
	version, err := requiredString(fields, "version")
	if err != nil {
		return "", err
	}
	if version != "1" {
		return "", errInvalidField("version", fmt.Sprintf("Version value is not supported, expected 1 got %q", version), nil)
	}
	return version, nil
}

func validateChainID(fields map[string]interface{}) (int, error) {
	var chainID int
	switch val := fields["chainId"].(type) {
	case nil:
		return 0, nil
	case int:
		chainID = val
	case int64:
		chainID = int(val)
	case float64:
		// encoding/json decodes every number as float64
		if val != math.Trunc(val) || val > 1<<53 {
			return 0, errInvalidField("chainId", "Invalid format for field `chainId`, must be an integer", nil)
		}
		chainID = int(val)
	case string:
		if val == "" {
			return 0, nil
		}
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return 0, errInvalidField("chainId", "Invalid format for field `chainId`, must be an integer", err)
		}
		chainID = parsed
	default:
		return 0, errInvalidField("chainId", "`chainId` must be a string or an integer", nil)
	}

	// EIP-155 chain IDs start at 1; zero is reserved for "unset".
	if chainID < 1 {
		return 0, errInvalidField("chainId", "`chainId` must be a positive integer", nil)
	}
	return chainID, nil
}

func validateNonce(fields map[string]interface{}) (*string, error) {
	nonce, err := optionalString(fields, "nonce")
	if err != nil || nonce == nil {
		return nil, err
	}
	if !noncePattern.MatchString(*nonce) {
		return nil, errInvalidField("nonce", "Message `nonce` must be at least 8 alphanumeric characters", nil)
	}
	return nonce, nil
}

func validateRequestID(fields map[string]interface{}) (*string, error) {
	requestID, err := optionalString(fields, "requestId")
	if err != nil || requestID == nil {
		return nil, err
	}
	if !requestIDPattern.MatchString(*requestID) {
		return nil, errInvalidFormat("requestId", nil)
	}
	return requestID, nil
}

func validateResources(fields map[string]interface{}) ([]string, error) {
	var resources []string
	switch val := fields["resources"].(type) {
	case nil:
		return nil, nil
	case []string:
		resources = val
	case []interface{}:
		resources = make([]string, 0, len(val))
		for _, v := range val {
			s, ok := v.(string)
			if !ok {
				return nil, errInvalidField("resources", "`resources` must be a []string", nil)
			}
			resources = append(resources, s)
		}
	default:
		return nil, errInvalidField("resources", "`resources` must be a []string", nil)
	}

	if len(resources) == 0 {
		return nil, nil
	}
	for i, resource := range resources {
		if err := validateURI(resource); err != nil {
			return nil, errInvalidField("resources", fmt.Sprintf("Resource at position %d has invalid URI", i), err)
		}
	}
	return append([]string(nil), resources...), nil
}
