package model

import (
	"regexp"
	"strings"

	"captive-wifi-billing/internal/domain"
)

var (
	phoneRe = regexp.MustCompile(`^254(7|1)\d{8}$`)
	macRe   = regexp.MustCompile(`^([0-9A-F]{2}:){5}[0-9A-F]{2}$`)
)

// NormalizePhone canonicalizes a Kenyan MSISDN to 254XXXXXXXXX.
// Accepts 07XXXXXXXX, 01XXXXXXXX, +254..., and 254... input forms.
func NormalizePhone(raw string) (string, error) {
	p := strings.TrimSpace(raw)
	p = strings.ReplaceAll(p, " ", "")
	p = strings.TrimPrefix(p, "+")
	if strings.HasPrefix(p, "0") && len(p) == 10 {
		p = "254" + p[1:]
	}
	if !phoneRe.MatchString(p) {
		return "", domain.ErrInvalidArgument
	}
	return p, nil
}

// NormalizeMAC canonicalizes a device identifier to upper-case colon-separated
// form (AA:BB:CC:DD:EE:FF). Dashes are accepted on input.
func NormalizeMAC(raw string) (string, error) {
	m := strings.ToUpper(strings.TrimSpace(raw))
	m = strings.ReplaceAll(m, "-", ":")
	if !macRe.MatchString(m) {
		return "", domain.ErrInvalidArgument
	}
	return m, nil
}
