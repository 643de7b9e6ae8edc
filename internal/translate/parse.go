package translate

import (
	"encoding/json"
	"regexp"
	"strings"
)

// apiResult is one entry of a translation provider's `results` array (spec
// §6 "Translation provider").
type apiResult struct {
	Original    string `json:"original"`
	Translated  string `json:"translated"`
	Category    string `json:"category,omitempty"`
	Subcategory string `json:"subcategory,omitempty"`
	Descriptor  string `json:"descriptor,omitempty"`
	Variation   string `json:"variation,omitempty"`
}

type apiResponse struct {
	Results []apiResult `json:"results"`
}

var codeFenceRE = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

// stripCodeFences removes a single leading/trailing markdown code fence
// some providers wrap JSON responses in despite response_format=json_object
// (spec §4.10 step 6).
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if m := codeFenceRE.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return s
}

// pairRE finds `"original": "...", "translated": "..."` pairs directly in
// raw text, independent of surrounding brace structure — the regex-recovery
// fallback (spec §4.10 step 6) needs to work even when a response is
// truncated mid-object (spec §8 scenario S5) and therefore has no matching
// closing brace for json.Unmarshal to find.
var pairRE = regexp.MustCompile(`"original"\s*:\s*"((?:[^"\\]|\\.)*)"\s*,\s*"translated"\s*:\s*"((?:[^"\\]|\\.)*)"`)

func fieldRE(name string) *regexp.Regexp {
	return regexp.MustCompile(`"` + name + `"\s*:\s*"((?:[^"\\]|\\.)*)"`)
}

var (
	categoryRE    = fieldRE("category")
	subcategoryRE = fieldRE("subcategory")
	descriptorRE  = fieldRE("descriptor")
	variationRE   = fieldRE("variation")
)

func jsonUnescape(s string) string {
	var out string
	if err := json.Unmarshal([]byte(`"`+s+`"`), &out); err == nil {
		return out
	}
	return s
}

func firstMatch(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return jsonUnescape(m[1])
}

// recoverResults scans raw text for original/translated pairs when strict
// JSON decoding fails, per spec §4.10 step 6 / §8 scenario S5.
func recoverResults(raw string) []apiResult {
	matches := pairRE.FindAllStringSubmatchIndex(raw, -1)
	results := make([]apiResult, 0, len(matches))
	for i, m := range matches {
		original := jsonUnescape(raw[m[2]:m[3]])
		translated := jsonUnescape(raw[m[4]:m[5]])

		segEnd := len(raw)
		if i+1 < len(matches) {
			segEnd = matches[i+1][0]
		}
		segment := raw[m[1]:segEnd]

		results = append(results, apiResult{
			Original:    original,
			Translated:  translated,
			Category:    firstMatch(categoryRE, segment),
			Subcategory: firstMatch(subcategoryRE, segment),
			Descriptor:  firstMatch(descriptorRE, segment),
			Variation:   firstMatch(variationRE, segment),
		})
	}
	return results
}

// parseResponse decodes a provider's response body into Items aligned to
// originals' order. Strict JSON is tried first; on failure, regex recovery
// runs instead (spec §4.10 step 6/7). The output always has exactly
// len(originals) entries — any original with no matching result falls back
// to an identity translation (spec §8 invariant 2).
func parseResponse(raw string, originals []string) []Item {
	content := stripCodeFences(raw)

	var results []apiResult
	var resp apiResponse
	if err := json.Unmarshal([]byte(content), &resp); err == nil && len(resp.Results) > 0 {
		results = resp.Results
	} else {
		results = recoverResults(content)
	}

	byOriginal := make(map[string]apiResult, len(results))
	for _, r := range results {
		if _, exists := byOriginal[r.Original]; !exists {
			byOriginal[r.Original] = r
		}
	}

	items := make([]Item, len(originals))
	for i, original := range originals {
		if r, ok := byOriginal[original]; ok {
			items[i] = Item{
				Original:    original,
				Translated:  r.Translated,
				Category:    r.Category,
				Subcategory: r.Subcategory,
				Descriptor:  r.Descriptor,
				Variation:   r.Variation,
			}
		} else {
			items[i] = identityItem(original)
		}
	}
	return items
}

func identityItem(original string) Item {
	return Item{Original: original, Translated: original}
}
