// Package tagging maps free text to a small vocabulary of canonical domain tags.
// Requests and knowledge entries are tagged with the same dictionary so tag
// overlap is a meaningful relevance signal.
package tagging

import (
	"regexp"
	"sort"
	"strings"
)

// MaxTags is the maximum number of tags attached to a request or entry.
const MaxTags = 8

// Dictionary maps surface terms (lowercased words or phrases) to canonical tags.
type Dictionary struct {
	terms map[string]string

	// phrases holds terms that span more than one word token
	// ("spin orbit torque", "a/m"); they are matched at word boundaries.
	phrases []string
}

// canonicalTerms lists each canonical tag with the surface forms that map to it.
var canonicalTerms = map[string][]string{
	"sot":           {"sot", "spin-orbit torque", "spin orbit torque", "spin-orbit", "heavy metal", "hm", "spin hall"},
	"stt":           {"stt", "spin-transfer torque", "spin transfer torque", "slonczewski"},
	"llg":           {"llg", "landau-lifshitz-gilbert", "landau lifshitz gilbert", "gilbert"},
	"damping":       {"damping", "alpha", "gilbert damping"},
	"pimm":          {"pimm", "pulse-induced microwave magnetometry", "pulse induced microwave magnetometry", "oersted pulse", "field pulse"},
	"fmr":           {"fmr", "ferromagnetic resonance", "resonance", "linewidth"},
	"vsd":           {"vsd", "voltage spin diode", "spin diode", "spin-diode", "rectification"},
	"pma":           {"pma", "perpendicular magnetic anisotropy", "perpendicular anisotropy", "perpendicular"},
	"dmi":           {"dmi", "dzyaloshinskii-moriya", "dzyaloshinskii moriya", "dzyaloshinskii"},
	"anisotropy":    {"anisotropy", "ku", "uniaxial", "easy axis", "hard axis"},
	"exchange":      {"exchange", "iec", "interlayer exchange", "rkky", "coupling", "j1", "j2"},
	"field-sweep":   {"field sweep", "sweep", "hext", "external field", "applied field", "field scan"},
	"current":       {"current", "current density", "je", "driver", "excitation"},
	"magnetization": {"magnetization", "ms", "saturation", "mag"},
	"multilayer":    {"multilayer", "bilayer", "trilayer", "synthetic antiferromagnet", "saf", "two layers", "stack"},
	"junction":      {"junction", "mtj", "tunnel junction", "magnetic tunnel junction"},
	"layer":         {"layer", "free layer", "ferromagnet", "fm", "reference layer"},
	"mr":            {"mr", "magnetoresistance", "tmr", "amr", "smr", "gmr", "resistance", "ahe", "hall"},
	"thermal":       {"thermal", "temperature", "noise", "stochastic"},
	"units":         {"units", "unit", "tesla", "a/m", "j/m^3", "si"},
	"plotting":      {"plot", "plotting", "matplotlib", "figure"},
	"cmtj":          {"cmtj"},
}

// NewDictionary returns the default magnetization-dynamics dictionary.
func NewDictionary() *Dictionary {
	d := &Dictionary{terms: make(map[string]string)}
	for canonical, forms := range canonicalTerms {
		d.Add(canonical, forms...)
	}
	return d
}

// Add registers surface forms for a canonical tag. The canonical tag maps to itself.
func (d *Dictionary) Add(canonical string, forms ...string) {
	canonical = strings.ToLower(canonical)
	d.terms[canonical] = canonical
	for _, f := range forms {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" {
			continue
		}
		d.terms[f] = canonical
		if strings.ContainsAny(f, " -/^") {
			d.phrases = append(d.phrases, f)
		}
	}
	sort.Slice(d.phrases, func(i, j int) bool {
		if len(d.phrases[i]) != len(d.phrases[j]) {
			return len(d.phrases[i]) > len(d.phrases[j])
		}
		return d.phrases[i] < d.phrases[j]
	})
}

// Lookup returns the canonical tag for a term.
func (d *Dictionary) Lookup(term string) (string, bool) {
	c, ok := d.terms[strings.ToLower(strings.TrimSpace(term))]
	return c, ok
}

var wordPattern = regexp.MustCompile(`[a-z0-9]+`)

// InferTags returns the sorted canonical tags mentioned in text, capped at MaxTags.
// Tags are ranked by first mention before the cap applies.
func (d *Dictionary) InferTags(text string) []string {
	lower := strings.ToLower(text)
	type hit struct {
		tag string
		pos int
	}
	first := make(map[string]int)
	record := func(tag string, pos int) {
		if p, ok := first[tag]; !ok || pos < p {
			first[tag] = pos
		}
	}

	for _, phrase := range d.phrases {
		if idx := indexWord(lower, phrase); idx >= 0 {
			record(d.terms[phrase], idx)
		}
	}
	for _, loc := range wordPattern.FindAllStringIndex(lower, -1) {
		if tag, ok := d.terms[lower[loc[0]:loc[1]]]; ok {
			record(tag, loc[0])
		}
	}
	if len(first) == 0 {
		return nil
	}

	hits := make([]hit, 0, len(first))
	for tag, pos := range first {
		hits = append(hits, hit{tag, pos})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].pos != hits[j].pos {
			return hits[i].pos < hits[j].pos
		}
		return hits[i].tag < hits[j].tag
	})
	if len(hits) > MaxTags {
		hits = hits[:MaxTags]
	}
	tags := make([]string, len(hits))
	for i, h := range hits {
		tags[i] = h.tag
	}
	sort.Strings(tags)
	return tags
}

// indexWord finds phrase in s at word boundaries.
func indexWord(s, phrase string) int {
	offset := 0
	for {
		idx := strings.Index(s[offset:], phrase)
		if idx < 0 {
			return -1
		}
		start := offset + idx
		end := start + len(phrase)
		if (start == 0 || !isWordByte(s[start-1])) && (end == len(s) || !isWordByte(s[end])) {
			return start
		}
		offset = start + 1
	}
}

func isWordByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9') || b == '_'
}
