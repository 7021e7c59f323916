package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Fingerprint summarises the render-relevant fields of a normalized alert
// list. Two lists with the same fingerprint render identically for a fixed
// card configuration.
func Fingerprint(alerts []Alert) string {
	tuples := make([][8]string, len(alerts))
	for i, a := range alerts {
		tuples[i] = [8]string{
			a.Severity, a.Area, a.Sent, a.Published,
			a.Event, a.Headline, a.Description, a.Details,
		}
	}
	// Marshalling a fixed-size array of strings cannot fail.
	data, _ := json.Marshal(tuples)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
