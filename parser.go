package siwe

import (
	"fmt"
	"strings"
)

// MessageParser turns EIP-4361 text into the field set accepted by
// Config.NewMessage. Parsers only recognise structure; field values are
// checked afterwards during construction.
type MessageParser interface {
	Parse(message string) (map[string]interface{}, error)
}

// StrictParser matches the text against the full message grammar. Field
// order, literal phrases and separators must be exact.
type StrictParser struct{}

// LenientParser scans the message line by line. It tolerates CRLF line
// endings, trailing whitespace, reordered tagged lines, a missing blank line
// when no statement is present and a trailing newline.
type LenientParser struct{}

var (
	_ MessageParser = StrictParser{}
	_ MessageParser = LenientParser{}
)

func (StrictParser) Parse(message string) (map[string]interface{}, error) {
	match := strictGrammar.FindStringSubmatch(message)
	if match == nil {
		return nil, errMalformed("Message could not be parsed")
	}

	result := make(map[string]interface{})
	for i, name := range strictGrammar.SubexpNames() {
		if i != 0 && name != "" && match[i] != "" {
			result[name] = match[i]
		}
	}

	if val, ok := result["resources"]; ok {
		result["resources"] = strings.Split(val.(string), "\n- ")[1:]
	}

	return result, nil
}

var taggedFields = map[string]string{
	"URI":             "uri",
	"Version":         "version",
	"Chain ID":        "chainId",
	"Nonce":           "nonce",
	"Issued At":       "issuedAt",
	"Expiration Time": "expirationTime",
	"Not Before":      "notBefore",
	"Request ID":      "requestId",
}

var requiredTags = []string{"URI", "Version", "Chain ID", "Nonce", "Issued At"}

func (LenientParser) Parse(message string) (map[string]interface{}, error) {
	lines := strings.Split(strings.ReplaceAll(message, "\r\n", "\n"), "\n")
	if len(lines) < 3 {
		return nil, errMalformed("message needs at least a header, an address and an empty line")
	}

	domain, ok := strings.CutSuffix(strings.TrimRight(lines[0], " \t"), headerSuffix)
	if !ok {
		return nil, errMalformed(fmt.Sprintf("first line must end in %q", headerSuffix))
	}

	result := make(map[string]interface{})
	setField(result, "domain", strings.TrimSpace(domain))
	setField(result, "address", strings.TrimSpace(lines[1]))

	if !isBlank(lines[2]) {
		return nil, errMalformed("third line must be empty")
	}

	// A whitespace-only statement is still a statement; an empty line here
	// is the second blank line of the no-statement layout.
	i := 3
	if i+1 < len(lines) && lines[i] != "" && isBlank(lines[i+1]) {
		setField(result, "statement", lines[i])
		i += 2
	}

	seen := make(map[string]bool)
	for ; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}

		if line == "Resources:" {
			if seen["resources"] {
				return nil, errMalformed(fmt.Sprintf("duplicate Resources block at line %d", i))
			}
			seen["resources"] = true

			var resources []string
			for i+1 < len(lines) {
				entry, ok := strings.CutPrefix(strings.TrimSpace(lines[i+1]), "- ")
				if !ok {
					break
				}
				resources = append(resources, strings.TrimSpace(entry))
				i++
			}
			if len(resources) > 0 {
				result["resources"] = resources
			}
			continue
		}

		key, value, found := strings.Cut(line, ":")
		field, known := taggedFields[key]
		if !found || !known {
			return nil, errMalformed(fmt.Sprintf("encountered unparsable line at index %d", i))
		}
		if seen[field] {
			return nil, errMalformed(fmt.Sprintf("duplicate %q line at index %d", key, i))
		}
		seen[field] = true
		setField(result, field, strings.TrimSpace(value))
	}

	for _, tag := range requiredTags {
		if _, ok := result[taggedFields[tag]]; !ok {
			return nil, errMalformed(fmt.Sprintf("missing required line %q", tag))
		}
	}

	return result, nil
}

func setField(fields map[string]interface{}, key, value string) {
	if value != "" {
		fields[key] = value
	}
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}
