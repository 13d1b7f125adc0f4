package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Error is a client-input failure. Field names the offending input so the
// extension can target the right form control.
type Error struct {
	Message string
	Field   string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(field, format string, args ...interface{}) *Error {
	return &Error{Message: fmt.Sprintf(format, args...), Field: field}
}

var (
	emailRegexp      = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)+$`)
	licenseKeyRegexp = regexp.MustCompile(`^[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}$`)
	hexRegexp        = regexp.MustCompile(`^[0-9a-fA-F]+$`)
)

// disposableDomains is a fixed blocklist of throwaway email providers; free
// keys are one-per-email, so burner domains defeat the point.
var disposableDomains = map[string]bool{
	"mailinator.com":    true,
	"guerrillamail.com": true,
	"10minutemail.com":  true,
	"tempmail.com":      true,
	"temp-mail.org":     true,
	"throwaway.email":   true,
	"yopmail.com":       true,
	"sharklasers.com":   true,
	"getnada.com":       true,
	"trashmail.com":     true,
}

// Email trims, bounds, shape-checks, and lowercases an email address.
func Email(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	if email == "" {
		return "", newError("email", "Email is required")
	}
	if len(email) > 320 {
		return "", newError("email", "Email is too long")
	}
	if !emailRegexp.MatchString(email) {
		return "", newError("email", "Invalid email format")
	}

	at := strings.LastIndex(email, "@")
	local, domain := email[:at], strings.ToLower(email[at+1:])
	if len(local) > 64 {
		return "", newError("email", "Invalid email format")
	}
	if len(domain) > 255 {
		return "", newError("email", "Invalid email format")
	}
	if disposableDomains[domain] {
		return "", newError("email", "Disposable email addresses are not allowed")
	}

	return strings.ToLower(email), nil
}

// LicenseKey normalizes and shape-checks a license key.
func LicenseKey(raw string) (string, error) {
	key := strings.ToUpper(strings.TrimSpace(raw))
	if key == "" {
		return "", newError("licenseKey", "License key is required")
	}
	if len(key) > 100 {
		return "", newError("licenseKey", "Invalid license key format")
	}
	if !licenseKeyRegexp.MatchString(key) {
		return "", newError("licenseKey", "Invalid license key format")
	}
	return key, nil
}

// String enforces optional length bounds on a trimmed string.
func String(field, raw string, required bool, maxLen int) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		if required {
			return "", newError(field, "%s is required", field)
		}
		return "", nil
	}
	if maxLen > 0 && len(s) > maxLen {
		return "", newError(field, "%s must be at most %d characters", field, maxLen)
	}
	return s, nil
}

// IntInRange parses and bounds an integer parameter.
func IntInRange(field, raw string, fallback, min, max int) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, newError(field, "%s must be an integer", field)
	}
	if n < min || n > max {
		return 0, newError(field, "%s must be between %d and %d", field, min, max)
	}
	return n, nil
}

// OneOf checks membership in an allowed set, returning fallback for empty input.
func OneOf(field, raw, fallback string, allowed []string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return fallback, nil
	}
	for _, a := range allowed {
		if s == a {
			return s, nil
		}
	}
	return "", newError(field, "%s must be one of: %s", field, strings.Join(allowed, ", "))
}

// StringArray bounds an array's size and runs a sub-validator per item.
func StringArray(field string, raw []string, required bool, maxItems int, item func(string) (string, error)) ([]string, error) {
	if len(raw) == 0 {
		if required {
			return nil, newError(field, "%s is required", field)
		}
		return nil, nil
	}
	if maxItems > 0 && len(raw) > maxItems {
		return nil, newError(field, "%s must have at most %d items", field, maxItems)
	}
	out := make([]string, 0, len(raw))
	for i, v := range raw {
		normalized, err := item(v)
		if err != nil {
			var vErr *Error
			if errors.As(err, &vErr) {
				return nil, newError(field, "%s[%d]: %s", field, i, vErr.Message)
			}
			return nil, newError(field, "%s[%d] is invalid", field, i)
		}
		out = append(out, normalized)
	}
	return out, nil
}

// SignatureHeader is a parsed billing-provider signature header.
type SignatureHeader struct {
	Timestamp int64
	Signature string
}

// ParseSignatureHeader splits "t=...,v1=..." into its required parts.
func ParseSignatureHeader(header string) (*SignatureHeader, error) {
	if strings.TrimSpace(header) == "" {
		return nil, newError("signature", "Missing signature header")
	}

	var parsed SignatureHeader
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			ts, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil || ts <= 0 {
				return nil, newError("signature", "Invalid signature timestamp")
			}
			parsed.Timestamp = ts
		case "v1":
			parsed.Signature = kv[1]
		}
	}

	if parsed.Timestamp == 0 {
		return nil, newError("signature", "Invalid signature timestamp")
	}
	if parsed.Signature == "" || !hexRegexp.MatchString(parsed.Signature) {
		return nil, newError("signature", "Invalid signature")
	}
	return &parsed, nil
}
