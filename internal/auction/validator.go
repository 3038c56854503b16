// Package auction implements the bidding core layered onto payment links:
// bid validation, minimum-increment enforcement, lazy time-boxed close,
// idempotent finalization, and winner follow-up issuance.
package auction

import "strings"

// MinimumRequired computes the minimum amount a new bid must meet or exceed.
// With a highest accepted bid it is highest + minIncrement; the first bid
// only has to reach the starting price. Pure; used both for accept/reject
// decisions and for advertising the current minimum to callers.
func MinimumRequired(startingPriceCents, minIncrementCents int64, highestCents *int64) int64 {
	if highestCents != nil {
		return *highestCents + minIncrementCents
	}
	return startingPriceCents
}

// MaskEmail reveals only the first two characters of the local part and the
// full domain: "buyer@example.com" -> "bu****@example.com".
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return "****"
	}
	local, domain := email[:at], email[at:]
	if len(local) > 2 {
		local = local[:2]
	}
	return local + "****" + domain
}
