package email

import "strings"

// Mask redacts the local part of an address for logs and audit records,
// keeping the first rune and the domain: "jane.doe@example.com" becomes
// "j***@example.com". Inputs without a usable "@" are fully redacted.
func Mask(address string) string {
	at := strings.LastIndexByte(address, '@')
	if at <= 0 || at == len(address)-1 {
		return "***"
	}
	local := []rune(address[:at])
	return string(local[0]) + "***" + address[at:]
}
