package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"startup-radar/internal/domain/entity"
)

// Record normalizes one raw record. It splits the unstructured text blob
// into name, location and description, then coerces the structured fields
// (batch, status, tags, team size, URLs) with direct validation.
//
// Returns a NormalizationError only when no company name can be isolated;
// every other ambiguity degrades to an absent field.
func Record(raw *RawRecord) (*NormalizedRecord, error) {
	if raw == nil {
		return nil, &NormalizationError{Reason: "record is nil"}
	}

	tags := normalizeTags(raw.Tags)

	name, loc, desc := splitText(raw.Text, tags)
	if name == "" {
		return nil, &NormalizationError{
			Reason: "company name could not be isolated",
			Blob:   raw.Text,
		}
	}

	// 別フィールドでlocationが来た場合はそちらを優先（要検証）
	if pre := strings.TrimSpace(raw.Location); pre != "" {
		if l, ok := ParseLocation(pre, tags); ok {
			loc = l
		}
	}

	rec := &NormalizedRecord{
		ExternalID:  strings.TrimSpace(raw.ExternalID),
		Name:        name,
		Description: desc,
		Location:    loc,
		Batch:       normalizeBatch(raw.Batch),
		Status:      entity.ParseStatus(raw.Status),
		Tags:        tags,
		TeamSize:    ParseTeamSize(raw.TeamSize),
	}

	// URLs are validated-or-absent, never carried through raw
	if err := entity.ValidateURL(strings.TrimSpace(raw.URL)); err == nil {
		rec.URL = strings.TrimSpace(raw.URL)
	}
	if err := entity.ValidateURL(strings.TrimSpace(raw.LogoURL)); err == nil {
		rec.LogoURL = strings.TrimSpace(raw.LogoURL)
	}

	if rec.ExternalID == "" {
		rec.ExternalID = entity.DeriveExternalID(rec.Name, rec.Batch)
	}

	for _, f := range raw.Founders {
		fname := strings.TrimSpace(f.Name)
		if fname == "" {
			continue
		}
		founder := entity.Founder{
			Name:  fname,
			Title: strings.TrimSpace(f.Title),
		}
		if err := entity.ValidateURL(strings.TrimSpace(f.ProfileURL)); err == nil {
			founder.ProfileURL = strings.TrimSpace(f.ProfileURL)
		}
		rec.Founders = append(rec.Founders, founder)
	}

	return rec, nil
}

// descriptionDelimiters separate the name/location head of a one-line blob
// from the trailing description. Checked in order, earliest match wins.
var descriptionDelimiters = []string{" - ", " – ", " — ", " | "}

// splitText heuristically splits an unstructured blob into company name,
// location and description. Ordered rules, first match wins per field.
func splitText(blob string, tags []string) (string, *entity.Location, string) {
	blob = strings.TrimSpace(blob)
	if blob == "" {
		return "", nil, ""
	}

	lines := nonEmptyLines(blob)
	if len(lines) > 1 {
		return splitLines(lines, tags)
	}
	return splitInline(lines[0], tags)
}

// splitLines handles multi-line blobs: the first line is the name candidate,
// the first remaining line that parses as a plausible location becomes the
// location, and everything else is collapsed into the description.
func splitLines(lines []string, tags []string) (string, *entity.Location, string) {
	name, loc := splitNameLocation(lines[0], tags)

	var descParts []string
	for _, line := range lines[1:] {
		if line == name {
			continue
		}
		if loc == nil {
			if l, ok := ParseLocation(line, tags); ok {
				loc = l
				continue
			}
		} else if loc.Raw == line {
			continue
		}
		descParts = append(descParts, line)
	}

	return name, loc, collapse(strings.Join(descParts, " "))
}

// splitInline handles one-line blobs like
// "Acme Corp, San Francisco, CA - Building widgets".
func splitInline(line string, tags []string) (string, *entity.Location, string) {
	head := line
	desc := ""
	if idx, delim := earliestDelimiter(line); idx >= 0 {
		head = strings.TrimSpace(line[:idx])
		desc = strings.TrimSpace(line[idx+len(delim):])
	}

	name, loc := splitNameLocation(head, tags)

	// No delimiter and no location: fall back to the first sentence fragment
	if desc == "" && loc == nil {
		if dot := strings.Index(name, ". "); dot > 0 {
			desc = strings.TrimSpace(name[dot+2:])
			name = strings.TrimSpace(name[:dot])
		}
	}

	return name, loc, collapse(desc)
}

// splitNameLocation separates a trailing location from a name candidate.
// It tries comma suffixes longest-first ("San Francisco, CA" before "CA")
// and never consumes the whole string: a blob that is only a location still
// has no isolable name and is left untouched.
func splitNameLocation(s string, tags []string) (string, *entity.Location) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ",")
	for i := 1; i < len(parts); i++ {
		cand := strings.TrimSpace(strings.Join(parts[i:], ","))
		if loc, ok := ParseLocation(cand, tags); ok {
			return strings.TrimSpace(strings.Join(parts[:i], ",")), loc
		}
	}
	return s, nil
}

func earliestDelimiter(s string) (int, string) {
	best := -1
	var bestDelim string
	for _, d := range descriptionDelimiters {
		if idx := strings.Index(s, d); idx >= 0 && (best < 0 || idx < best) {
			best = idx
			bestDelim = d
		}
	}
	return best, bestDelim
}

func nonEmptyLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

// collapse trims and collapses internal whitespace runs.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// normalizeTags trims, drops empties and dedupes tags case-insensitively
// while preserving the source order.
func normalizeTags(raw []string) []string {
	if len(raw) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(raw))
	tags := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if seen[key] {
			continue
		}
		seen[key] = true
		tags = append(tags, t)
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}

// normalizeBatch uppercases batch labels that follow the two-digit
// convention ("w23" → "W23") and leaves anything else trimmed as-is.
func normalizeBatch(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if _, ok := entity.YearFromBatch(trimmed); ok {
		return strings.ToUpper(trimmed)
	}
	return trimmed
}

var teamSizeLeading = regexp.MustCompile(`^(\d+)`)

// ParseTeamSize coerces team size strings like "120", "7000+" or "10-50"
// to an integer. Ranges resolve to their lower bound. Returns nil when no
// leading number is present.
func ParseTeamSize(raw string) *int {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	m := teamSizeLeading.FindStringSubmatch(cleaned)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}
