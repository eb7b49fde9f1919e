package workflow

import (
	"bytes"
	"encoding/json"

	"filmseek/movie"
)

// rawRecord tolerates the endpoint's field variants. Some workflow
// revisions nest the payload one level deeper under "json".
type rawRecord struct {
	Title     string     `json:"title"`
	URL       string     `json:"url"`
	StreamURL string     `json:"stream_url"`
	MoviePage string     `json:"movie_page"`
	Poster    string     `json:"poster"`
	Year      string     `json:"year"`
	Genre     string     `json:"genre"`
	Rating    string     `json:"rating"`
	Nested    *rawRecord `json:"json"`
}

// Normalize parses an endpoint payload into records, accepting the
// three shapes the endpoint has been observed to return:
//
//   - a bare list of movie objects
//   - an object with a "results" list
//   - a one-element list wrapping an object with a "results" list
//
// Malformed or empty payloads yield nil; upstream treats that as zero
// external results. Records may leave CanonicalURL empty here; the
// merger decides whether a fallback applies or the record is dropped.
func Normalize(body []byte) []movie.Record {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil
	}

	var raws []rawRecord
	switch body[0] {
	case '{':
		var env struct {
			Results []rawRecord `json:"results"`
		}
		if err := json.Unmarshal(body, &env); err != nil {
			return nil
		}
		raws = env.Results
	case '[':
		// Probe for the nested-list wrapper shape first; a bare list
		// parses into the wrapper with nil Results.
		var wrapped []struct {
			Results []rawRecord `json:"results"`
		}
		if err := json.Unmarshal(body, &wrapped); err == nil && len(wrapped) > 0 && wrapped[0].Results != nil {
			raws = wrapped[0].Results
			break
		}
		if err := json.Unmarshal(body, &raws); err != nil {
			return nil
		}
	default:
		return nil
	}

	var records []movie.Record
	for _, raw := range raws {
		if raw.Nested != nil {
			raw = *raw.Nested
		}
		rec := movie.Record{
			Title:         raw.Title,
			CanonicalURL:  firstNonEmpty(raw.StreamURL, raw.URL, raw.MoviePage),
			DetailPageURL: firstNonEmpty(raw.MoviePage, raw.URL),
			Source:        movie.SourceExternal,
			Year:          raw.Year,
			PosterURL:     raw.Poster,
			Genre:         raw.Genre,
			Rating:        raw.Rating,
		}
		rec.Normalize()
		records = append(records, rec)
	}
	return records
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
