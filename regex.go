package siwe

import (
	"regexp"
)

const headerSuffix = " wants you to sign in with your Ethereum account:"

// rfc3986 is the generic URI reference split from RFC 3986 appendix B,
// narrowed so no component can contain whitespace.
const rfc3986 = `(?:[^\s:/?#]+:)?(?://[^\s/?#]*)?[^\s?#]*(?:\?[^\s#]*)?(?:#\S*)?`

const dateTime = `[0-9]+-(?:0[1-9]|1[012])-(?:0[1-9]|[12][0-9]|3[01])[Tt](?:[01][0-9]|2[0-3]):[0-5][0-9]:(?:[0-5][0-9]|60)(?:\.[0-9]+)?(?:[Zz]|[+-](?:[01][0-9]|2[0-3]):[0-5][0-9])`

const pchar = `[-._~!$&'()*+,;=:@%a-zA-Z0-9]`

var strictGrammar = regexp.MustCompile("^" +
	`(?P<domain>[^/?#\s]+)` + regexp.QuoteMeta(headerSuffix) + `\n` +
	`(?P<address>0x[a-fA-F0-9]{40})\n\n` +
	`(?:(?P<statement>[^\n]+)\n)?\n` +
	`URI: (?P<uri>` + rfc3986 + `)\n` +
	`Version: (?P<version>1)\n` +
	`Chain ID: (?P<chainId>[0-9]+)\n` +
	`Nonce: (?P<nonce>[a-zA-Z0-9]{8,})\n` +
	`Issued At: (?P<issuedAt>` + dateTime + `)` +
	`(?:\nExpiration Time: (?P<expirationTime>` + dateTime + `))?` +
	`(?:\nNot Before: (?P<notBefore>` + dateTime + `))?` +
	`(?:\nRequest ID: (?P<requestId>` + pchar + `*))?` +
	`(?:\nResources:(?P<resources>(?:\n- ` + rfc3986 + `)+))?` +
	"$")

var (
	dateTimePattern  = regexp.MustCompile("^" + dateTime + "$")
	noncePattern     = regexp.MustCompile(`^[a-zA-Z0-9]{8,}$`)
	requestIDPattern = regexp.MustCompile("^" + pchar + "*$")
)
