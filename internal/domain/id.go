package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// SightingID returns a deterministic identifier for a sighting. Reprocessing
// the same input produces the same ID, so sinks can upsert idempotently.
// Duplicate rows in the source share an ID; callers that need uniqueness pair
// it with the row position.
func SightingID(s Sighting) string {
	date := ""
	if s.ObservationDate != nil {
		date = s.ObservationDate.Format("2006-01-02")
	}
	input := fmt.Sprintf("%s|%s|%s|%s|%s|%s|%s",
		NormalizeSpecies(s.ScientificName),
		NormalizeSpecies(s.CommonName),
		NormalizeCode(s.RegionCode),
		date,
		formatOptFloat(s.Latitude),
		formatOptFloat(s.Longitude),
		formatOptInt(s.ObservationCount),
	)
	hash := sha256.Sum256([]byte(input))
	short := hex.EncodeToString(hash[:8])

	prefix := strings.ReplaceAll(NormalizeSpecies(s.CommonName), " ", "_")
	if prefix == "" {
		return short
	}
	return prefix + "-" + short
}

func formatOptFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.4f", *v)
}

func formatOptInt(v *int) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%d", *v)
}
