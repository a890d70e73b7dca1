package normalize

import (
	"regexp"
	"strings"

	"startup-radar/internal/domain/entity"
)

// Location plausibility is dictionary- and pattern-based. The dictionaries
// are deliberately small: they only need to cover the cities and countries
// that actually appear in accelerator directories, and a miss degrades to
// an absent location rather than a wrong one.

// knownCities are major startup-hub cities accepted as a standalone location.
var knownCities = map[string]bool{
	"san francisco": true, "new york": true, "los angeles": true,
	"mountain view": true, "palo alto": true, "oakland": true,
	"san jose": true, "seattle": true, "austin": true, "boston": true,
	"cambridge": true, "chicago": true, "denver": true, "miami": true,
	"atlanta": true, "charleston": true, "toronto": true, "vancouver": true,
	"montreal": true, "london": true, "oxford": true, "manchester": true,
	"paris": true, "berlin": true, "munich": true, "amsterdam": true,
	"dublin": true, "stockholm": true, "zurich": true, "tel aviv": true,
	"singapore": true, "tokyo": true, "osaka": true, "seoul": true,
	"beijing": true, "shanghai": true, "shenzhen": true, "bangalore": true,
	"bengaluru": true, "mumbai": true, "delhi": true, "new delhi": true,
	"sydney": true, "melbourne": true, "são paulo": true, "sao paulo": true,
	"mexico city": true, "bogotá": true, "bogota": true,
	"buenos aires": true, "santiago": true, "lagos": true, "nairobi": true,
	"cairo": true, "dubai": true,
}

// knownCountries are country names and codes accepted as the last part of a
// "City, Country" style location.
var knownCountries = map[string]bool{
	"usa": true, "united states": true, "us": true, "uk": true,
	"united kingdom": true, "canada": true, "germany": true, "france": true,
	"spain": true, "portugal": true, "italy": true, "netherlands": true,
	"ireland": true, "sweden": true, "norway": true, "denmark": true,
	"finland": true, "switzerland": true, "austria": true, "poland": true,
	"estonia": true, "israel": true, "india": true, "china": true,
	"japan": true, "korea": true, "south korea": true, "singapore": true,
	"australia": true, "new zealand": true, "brazil": true, "mexico": true,
	"argentina": true, "chile": true, "colombia": true, "peru": true,
	"nigeria": true, "kenya": true, "egypt": true, "uae": true,
	"united arab emirates": true, "indonesia": true, "vietnam": true,
	"thailand": true, "philippines": true, "algeria": true,
}

// stateCodes are US state and Canadian province abbreviations. Kept explicit
// instead of matching any two uppercase letters so tag-like tokens ("AI",
// "VR") never pass as a region.
var stateCodes = map[string]bool{
	"AL": true, "AK": true, "AZ": true, "AR": true, "CA": true, "CO": true,
	"CT": true, "DE": true, "FL": true, "GA": true, "HI": true, "ID": true,
	"IL": true, "IN": true, "IA": true, "KS": true, "KY": true, "LA": true,
	"ME": true, "MD": true, "MA": true, "MI": true, "MN": true, "MS": true,
	"MO": true, "MT": true, "NE": true, "NV": true, "NH": true, "NJ": true,
	"NM": true, "NY": true, "NC": true, "ND": true, "OH": true, "OK": true,
	"OR": true, "PA": true, "RI": true, "SC": true, "SD": true, "TN": true,
	"TX": true, "UT": true, "VT": true, "VA": true, "WA": true, "WV": true,
	"WI": true, "WY": true, "DC": true,
	"ON": true, "BC": true, "QC": true, "AB": true,
}

// descriptionWords are tokens that mark a candidate as a product blurb
// rather than a place.
var descriptionWords = map[string]bool{
	"platform": true, "software": true, "api": true, "apis": true,
	"tool": true, "tools": true, "infrastructure": true,
	"marketplace": true, "analytics": true, "automation": true,
	"app": true, "saas": true, "solution": true, "solutions": true,
	"service": true, "services": true,
}

// cityLike matches capitalized word sequences such as "San Francisco",
// "Tel Aviv" or "São Paulo".
var cityLike = regexp.MustCompile(`^[A-Z][\p{L}'.-]*(?: [A-Z][\p{L}'.-]*)*$`)

// ParseLocation validates a candidate location string and, when plausible,
// parses it into a structured Location. The tag set of the same record is
// cross-checked: a candidate that collides with an industry tag (a startup
// named after a city, a "Phoenix" tag) is rejected so the location is left
// absent rather than guessed.
func ParseLocation(s string, tags []string) (*entity.Location, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || len(s) > 60 {
		return nil, false
	}
	if !plausible(s) {
		return nil, false
	}

	parts := splitTrim(s, ",")
	for _, p := range parts {
		if collidesWithTag(p, tags) {
			return nil, false
		}
	}

	switch len(parts) {
	case 1:
		return parseSinglePart(parts[0], s)
	case 2:
		return parseTwoParts(parts[0], parts[1], s)
	case 3:
		return parseThreeParts(parts[0], parts[1], parts[2], s)
	default:
		return nil, false
	}
}

// plausible applies the cheap disqualifiers that mark a candidate as a
// description or department string rather than a geographic location.
func plausible(s string) bool {
	if strings.ContainsAny(s, ":!?;") {
		return false
	}
	// 文の区切りを含むものは説明文とみなす
	if strings.Contains(s, ".") {
		return false
	}

	words := strings.Fields(s)
	for _, w := range words {
		if descriptionWords[strings.ToLower(strings.Trim(w, ","))] {
			return false
		}
	}

	// Multi-word ALL CAPS strings are department names, not places
	if len(words) >= 2 && s == strings.ToUpper(s) {
		return false
	}

	return true
}

func parseSinglePart(p, raw string) (*entity.Location, bool) {
	lower := strings.ToLower(p)
	switch {
	case knownCities[lower]:
		return &entity.Location{City: p, Raw: raw}, true
	case knownCountries[lower]:
		return &entity.Location{Country: p, Raw: raw}, true
	case lower == "remote" || lower == "remote-first" || lower == "fully remote":
		return &entity.Location{Raw: raw}, true
	default:
		return nil, false
	}
}

func parseTwoParts(city, second, raw string) (*entity.Location, bool) {
	if !cityLike.MatchString(city) {
		return nil, false
	}
	switch {
	case stateCodes[second]:
		return &entity.Location{City: city, Region: second, Raw: raw}, true
	case knownCountries[strings.ToLower(second)]:
		return &entity.Location{City: city, Country: second, Raw: raw}, true
	case knownCities[strings.ToLower(city)] && cityLike.MatchString(second):
		return &entity.Location{City: city, Region: second, Raw: raw}, true
	default:
		return nil, false
	}
}

func parseThreeParts(city, region, country, raw string) (*entity.Location, bool) {
	if !cityLike.MatchString(city) {
		return nil, false
	}
	if !stateCodes[region] && !cityLike.MatchString(region) {
		return nil, false
	}
	if !knownCountries[strings.ToLower(country)] && !cityLike.MatchString(country) {
		return nil, false
	}
	return &entity.Location{City: city, Region: region, Country: country, Raw: raw}, true
}

func collidesWithTag(part string, tags []string) bool {
	for _, tag := range tags {
		if strings.EqualFold(part, tag) {
			return true
		}
	}
	return false
}

func splitTrim(s, sep string) []string {
	raw := strings.Split(s, sep)
	parts := make([]string, 0, len(raw))
	for _, p := range raw {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
