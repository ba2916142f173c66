// Package classify decides which log notifications are worth a full
// transaction fetch and turns fetched transactions into swap records.
package classify

import "strings"

// failureMarkers reject a notification outright; an erroring
// transaction is never relevant.
var failureMarkers = []string{"failed", "error"}

// relevanceKeywords gate the expensive fetch+parse path. Missing a
// relevant transaction without a recognized keyword is an accepted
// precision trade-off.
var relevanceKeywords = []string{
	"raydium",
	"jupiter",
	"pumpfun",
	"pump.fun",
	"swap",
	"transfer",
	"meteora",
	"orca",
}

// Relevant reports whether the log lines of a notification look like a
// swap or transfer worth fetching. Failure markers win over keywords.
func Relevant(logs []string) bool {
	text := strings.ToLower(strings.Join(logs, " "))

	for _, marker := range failureMarkers {
		if strings.Contains(text, marker) {
			return false
		}
	}

	for _, kw := range relevanceKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}

	return false
}
