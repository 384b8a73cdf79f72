package ai

import (
	"encoding/json"
	"strconv"
	"strings"
	"unicode/utf8"
)

// maxNameLength bounds stored item names.
const maxNameLength = 200

// TruncateName limits a display name to the stored maximum, counting runes so
// multi-byte names are not cut mid-character.
func TruncateName(name string) string {
	if utf8.RuneCountInString(name) <= maxNameLength {
		return name
	}
	runes := []rune(name)
	return string(runes[:maxNameLength])
}

// rawItem tolerates whatever field types the model emits.
type rawItem struct {
	Name  any `json:"name"`
	Grams any `json:"grams"`
	Kcal  any `json:"kcal"`
}

// rawEstimate mirrors the text-estimation JSON contract loosely.
type rawEstimate struct {
	Items     []rawItem `json:"items"`
	TotalKcal any       `json:"total_kcal"`
}

// rawVision mirrors the vision JSON contract loosely.
type rawVision struct {
	Date  any       `json:"date"`
	Time  any       `json:"time"`
	Items []rawItem `json:"items"`
}

// decodeEstimate parses a model reply into a normalized Estimate. A malformed
// item degrades to zeros rather than rejecting the whole payload.
func decodeEstimate(content string) (Estimate, bool) {
	payload := StripCodeFence(content)

	var raw rawEstimate
	if errUnmarshal := json.Unmarshal([]byte(payload), &raw); errUnmarshal != nil {
		return Estimate{}, false
	}

	items := normalizeItems(raw.Items)
	total := coerceInt(raw.TotalKcal)
	if total == 0 {
		for _, item := range items {
			total += item.Kcal
		}
	}
	return Estimate{Items: items, TotalKcal: total}, true
}

// decodeVision parses a model reply into a normalized VisionResult.
func decodeVision(content string) (VisionResult, bool) {
	payload := StripCodeFence(content)

	var raw rawVision
	if errUnmarshal := json.Unmarshal([]byte(payload), &raw); errUnmarshal != nil {
		return VisionResult{}, false
	}

	return VisionResult{
		Date:  coerceString(raw.Date),
		Time:  coerceString(raw.Time),
		Items: normalizeItems(raw.Items),
	}, true
}

// normalizeItems coerces loose items into the stored shape: truncated names,
// non-negative integer grams and calories.
func normalizeItems(raw []rawItem) []Item {
	items := make([]Item, 0, len(raw))
	for _, entry := range raw {
		items = append(items, Item{
			Name:  TruncateName(coerceString(entry.Name)),
			Grams: coerceInt(entry.Grams),
			Kcal:  coerceInt(entry.Kcal),
		})
	}
	return items
}

// coerceString renders a loose JSON value as a string.
func coerceString(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

// coerceInt renders a loose JSON value as a non-negative int, defaulting to
// zero for missing or non-numeric input.
func coerceInt(v any) int {
	var n int
	switch value := v.(type) {
	case float64:
		n = int(value)
	case json.Number:
		parsed, errParse := value.Int64()
		if errParse != nil {
			return 0
		}
		n = int(parsed)
	case string:
		parsed, errParse := strconv.Atoi(strings.TrimSpace(value))
		if errParse != nil {
			return 0
		}
		n = parsed
	default:
		return 0
	}
	if n < 0 {
		return 0
	}
	return n
}

// StripCodeFence removes a surrounding Markdown code fence and an optional
// json language tag from a model reply.
func StripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.Trim(trimmed, "`")
	trimmed = strings.TrimSpace(trimmed)
	if len(trimmed) >= 4 && strings.EqualFold(trimmed[:4], "json") {
		trimmed = strings.TrimSpace(trimmed[4:])
	}
	return trimmed
}
