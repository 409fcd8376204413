package domain

import (
	"fmt"
	"regexp"
	"strings"
)

var agreementIDPattern = regexp.MustCompile(`^0x[0-9a-f]{64}$`)

// ValidateAgreementID reports whether id matches the canonical
// "0x"+64-lowercase-hex form required everywhere an agreement id is stored
// or looked up.
func ValidateAgreementID(id string) error {
	if !agreementIDPattern.MatchString(id) {
		return fmt.Errorf("invalid agreement id %q: must match ^0x[0-9a-f]{64}$", id)
	}
	return nil
}

// NormalizeAgreementID lowercases id and adds a "0x" prefix if missing,
// then validates the result.
func NormalizeAgreementID(id string) (string, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	if !strings.HasPrefix(id, "0x") {
		id = "0x" + id
	}
	if err := ValidateAgreementID(id); err != nil {
		return "", err
	}
	return id, nil
}

var addressPattern = regexp.MustCompile(`^0x[0-9a-f]{40}$`)

// NormalizeAddress lowercases addr, adds a "0x" prefix if missing, and
// validates it is a well-formed 20-byte address.
func NormalizeAddress(addr string) (string, error) {
	addr = strings.ToLower(strings.TrimSpace(addr))
	if !strings.HasPrefix(addr, "0x") {
		addr = "0x" + addr
	}
	if !addressPattern.MatchString(addr) {
		return "", fmt.Errorf("invalid address %q: must match ^0x[0-9a-f]{40}$", addr)
	}
	return addr, nil
}

var hashPattern = regexp.MustCompile(`^0x[0-9a-f]{64}$`)

// NormalizeHash lowercases h, adds a "0x" prefix if missing, and validates
// it is a well-formed 32-byte hash (used for both tx hashes and block
// hashes, which share the same on-chain shape).
func NormalizeHash(h string) (string, error) {
	h = strings.ToLower(strings.TrimSpace(h))
	if !strings.HasPrefix(h, "0x") {
		h = "0x" + h
	}
	if !hashPattern.MatchString(h) {
		return "", fmt.Errorf("invalid hash %q: must match ^0x[0-9a-f]{64}$", h)
	}
	return h, nil
}
