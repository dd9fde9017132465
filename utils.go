package siwe

import (
	"fmt"
	"strings"
	"time"

	"github.com/relvacode/iso8601"
)

func parseTimestamp(fields map[string]interface{}, key string) (*string, error) {
	var value string

	switch val := fields[key].(type) {
	case nil:
		return nil, nil
	case time.Time:
		value = val.UTC().Format(time.RFC3339)
	case *time.Time:
		if val == nil {
			return nil, nil
		}
		value = val.UTC().Format(time.RFC3339)
	case string:
		if val == "" {
			return nil, nil
		}
		if !dateTimePattern.MatchString(val) {
			return nil, errInvalidFormat(key, nil)
		}
		if _, err := iso8601.ParseString(val); err != nil {
			return nil, errInvalidFormat(key, err)
		}
		value = val
	default:
		return nil, errInvalidField(key, fmt.Sprintf("`%s` must be either an ISO8601 formatted string or time.Time", key), nil)
	}

	return &value, nil
}

// parseTime reads a timestamp that already passed parseTimestamp.
func parseTime(value *string) *time.Time {
	if isEmpty(value) {
		return nil
	}
	ret, err := iso8601.ParseString(*value)
	if err != nil {
		return nil
	}
	return &ret
}

func isEmpty(str *string) bool {
	return str == nil || len(strings.TrimSpace(*str)) == 0
}

func copyString(str *string) *string {
	if str == nil {
		return nil
	}
	ret := *str
	return &ret
}

func optionalString(m map[string]interface{}, k string) (*string, error) {
	switch v := m[k].(type) {
	case nil:
		return nil, nil
	case string:
		if v == "" {
			return nil, nil
		}
		return &v, nil
	case *string:
		if v == nil || *v == "" {
			return nil, nil
		}
		return copyString(v), nil
	default:
		return nil, errInvalidField(k, fmt.Sprintf("`%s` must be a string", k), nil)
	}
}

func requiredString(m map[string]interface{}, k string) (string, error) {
	s, err := optionalString(m, k)
	if err != nil {
		return "", err
	}
	if s == nil {
		return "", errInvalidField(k, fmt.Sprintf("Message `%s` must not be empty", k), nil)
	}
	return *s, nil
}
