package reconcile

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"

	"startup-radar/internal/usecase/normalize"
)

// Material fields are the ones whose change means the stored startup must be
// rewritten: name, description, status, tags, team size, location, batch.
// Cosmetic fields (site URL, logo URL) are excluded so upstream churn in
// them never triggers spurious updates.

// fieldSep separates field values in the canonical fingerprint input. A
// control character keeps "a"+"bc" distinct from "ab"+"c".
const fieldSep = "\x1f"

// Fingerprint computes the stable comparison key of a normalized record.
// It is deterministic and independent of tag ordering: the same logical
// record always yields the same fingerprint regardless of how the source
// ordered its tag list.
func Fingerprint(rec *normalize.NormalizedRecord) string {
	tags := make([]string, len(rec.Tags))
	copy(tags, rec.Tags)
	sort.Slice(tags, func(i, j int) bool {
		return strings.ToLower(tags[i]) < strings.ToLower(tags[j])
	})

	teamSize := ""
	if rec.TeamSize != nil {
		teamSize = strconv.Itoa(*rec.TeamSize)
	}

	location := ""
	if rec.Location != nil {
		location = strings.Join([]string{
			rec.Location.City,
			rec.Location.Region,
			rec.Location.Country,
			rec.Location.Raw,
		}, fieldSep)
	}

	h := sha256.New()
	for _, field := range []string{
		rec.Name,
		rec.Description,
		string(rec.Status),
		strings.Join(tags, fieldSep),
		teamSize,
		location,
		rec.Batch,
	} {
		h.Write([]byte(field))
		h.Write([]byte{0x1e})
	}
	return hex.EncodeToString(h.Sum(nil))
}
