package utils

import (
	"errors"
	"net/mail"
	"strings"
)

// RFC 5321 path limit
const maxEmailLen = 254

var (
	ErrEmailEmpty   = errors.New("`email` is empty")
	ErrEmailInvalid = errors.New("`email` is not valid")
)

// ValidateEmail accepts a bare address whose domain has at least one dot.
// Display names ("Ana <ana@x.com>") and dotless hosts are rejected, both
// parse fine under RFC 5322.
func ValidateEmail(address string) error {
	if address == "" {
		return ErrEmailEmpty
	}
	if len(address) > maxEmailLen || strings.ContainsAny(address, " \t\r\n") {
		return ErrEmailInvalid
	}

	parsed, err := mail.ParseAddress(address)
	if err != nil || parsed.Name != "" || parsed.Address != address {
		return ErrEmailInvalid
	}

	at := strings.LastIndexByte(address, '@')
	domain := address[at+1:]
	if at < 1 || !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return ErrEmailInvalid
	}
	return nil
}

func IsValidEmail(address string) bool {
	return ValidateEmail(address) == nil
}
