package marketlens

import (
	"net/url"
	"strings"
)

const secondaryIDParam = "tid"

// ResolveMarketRef turns a pasted URL or bare slug into a MarketRef. It never
// fails: anything it cannot parse becomes the slug as-is.
func ResolveMarketRef(input string) MarketRef {
	trimmed := strings.TrimSpace(input)
	raw := trimmed
	bare := !strings.Contains(raw, "://")
	if bare {
		raw = "https://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return MarketRef{Slug: trimmed}
	}

	segments := make([]string, 0, 4)
	for _, segment := range strings.Split(parsed.Path, "/") {
		if segment != "" {
			segments = append(segments, segment)
		}
	}

	slug := segmentAfter(segments, "event")
	if slug == "" {
		slug = segmentAfter(segments, "market")
	}
	if slug == "" && len(segments) > 0 {
		slug = segments[len(segments)-1]
	}
	if slug == "" {
		// Bare slugs parse as a host with no path; the query is not part of it.
		if parsed.Host != "" && (bare || !strings.Contains(parsed.Host, ".")) {
			slug = parsed.Host
		} else {
			slug = trimmed
		}
	}

	return MarketRef{
		Slug:        slug,
		SecondaryID: strings.TrimSpace(parsed.Query().Get(secondaryIDParam)),
	}
}

func segmentAfter(segments []string, marker string) string {
	for i, segment := range segments {
		if segment == marker && i+1 < len(segments) {
			return segments[i+1]
		}
	}
	return ""
}
