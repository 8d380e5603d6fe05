package llm

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
)

// EventRecord is one raw event as the delegate reported it. Dates are kept
// as the original expression; the timeline package resolves them and drops
// records whose dates do not resolve.
type EventRecord struct {
	Date        string   `json:"date"`
	Description string   `json:"description"`
	Importance  int      `json:"importance"`
	Category    string   `json:"category"`
	Actors      []string `json:"actors,omitempty"`
	Confidence  float64  `json:"confidence"`
}

// ParseEventRecords turns a delegate response into event records. The
// response should be a bare JSON array, but delegates wrap output in
// markdown fences or prose often enough that the parser extracts the first
// array it can find, and falls back to a line-oriented "key: value" format
// when there is no JSON at all. Malformed records are logged and skipped
// individually; the error is reserved for responses with no usable records
// in any format.
func ParseEventRecords(raw string) ([]EventRecord, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("empty delegate response")
	}

	jsonText := extractJSONArray(raw)
	var parsed []EventRecord
	if err := json.Unmarshal([]byte(jsonText), &parsed); err == nil {
		return validateRecords(parsed)
	}

	// Some models answer with a single object instead of an array.
	var single EventRecord
	if err := json.Unmarshal([]byte(jsonText), &single); err == nil && single.Date != "" {
		return validateRecords([]EventRecord{single})
	}

	records := parseFreeText(raw)
	if len(records) == 0 {
		return nil, fmt.Errorf("no parseable event records in delegate response")
	}
	return validateRecords(records)
}

func validateRecords(records []EventRecord) ([]EventRecord, error) {
	valid := make([]EventRecord, 0, len(records))
	for _, r := range records {
		r.Date = strings.TrimSpace(r.Date)
		r.Description = strings.TrimSpace(r.Description)
		if r.Date == "" {
			log.Printf("[llm] skipping record without date: %.60q", r.Description)
			continue
		}
		if r.Description == "" {
			log.Printf("[llm] skipping record without description (date %s)", r.Date)
			continue
		}
		valid = append(valid, r)
	}
	if len(valid) == 0 && len(records) > 0 {
		return nil, fmt.Errorf("all %d delegate records failed validation", len(records))
	}
	return valid, nil
}

// extractJSONArray returns the first complete JSON array in text, stripping
// markdown fences first. Bracket matching skips brackets inside strings.
func extractJSONArray(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "[")
	if start == -1 {
		return text
	}

	depth := 0
	inString := false
	escape := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escape {
			escape = false
			continue
		}
		if c == '\\' {
			escape = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch c {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return text
}

// parseFreeText reads the constrained fallback format, one field per line:
//
//	date: 15/03/2024
//	description: perquisition au siège de la société
//	importance: 8
//
// A new "date:" line starts the next record.
func parseFreeText(raw string) []EventRecord {
	var records []EventRecord
	var current *EventRecord

	flush := func() {
		if current != nil && current.Date != "" {
			records = append(records, *current)
		}
		current = nil
	}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "-* \t"))
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "date":
			flush()
			current = &EventRecord{Date: value}
		case "description":
			if current != nil {
				current.Description = value
			}
		case "importance":
			if current != nil {
				if n, err := strconv.Atoi(value); err == nil {
					current.Importance = n
				}
			}
		case "category", "catégorie":
			if current != nil {
				current.Category = value
			}
		case "confidence":
			if current != nil {
				if f, err := strconv.ParseFloat(value, 64); err == nil {
					current.Confidence = f
				}
			}
		case "actors", "acteurs":
			if current != nil {
				for _, a := range strings.Split(value, ",") {
					if a = strings.TrimSpace(a); a != "" {
						current.Actors = append(current.Actors, a)
					}
				}
			}
		}
	}
	flush()
	return records
}
