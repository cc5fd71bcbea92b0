package language

import "strings"

// AutoCode is the sentinel that lets the worker detect the language itself.
const AutoCode = "auto"

type entry struct {
	code2   string   // ISO 639-1 (2-letter)
	code3   string   // ISO 639-2 primary (3-letter)
	alt3    string   // ISO 639-2 alternate (e.g. "fre" vs "fra")
	display string   // Human-readable name
	words   []string // Full word forms (e.g. "english")
}

var languages = []entry{
	{"ru", "rus", "", "Russian", []string{"russian"}},
	{"en", "eng", "", "English", []string{"english"}},
	{"es", "spa", "", "Spanish", []string{"spanish"}},
	{"fr", "fra", "fre", "French", []string{"french"}},
	{"de", "deu", "ger", "German", []string{"german"}},
	{"it", "ita", "", "Italian", []string{"italian"}},
	{"pt", "por", "", "Portuguese", []string{"portuguese"}},
	{"ja", "jpn", "", "Japanese", []string{"japanese"}},
	{"ko", "kor", "", "Korean", []string{"korean"}},
	{"zh", "zho", "chi", "Chinese", []string{"chinese"}},
	{"ar", "ara", "", "Arabic", []string{"arabic"}},
	{"hi", "hin", "", "Hindi", []string{"hindi"}},
	{"nl", "nld", "dut", "Dutch", []string{"dutch"}},
	{"pl", "pol", "", "Polish", []string{"polish"}},
	{"sv", "swe", "", "Swedish", []string{"swedish"}},
	{"da", "dan", "", "Danish", []string{"danish"}},
	{"no", "nor", "", "Norwegian", []string{"norwegian"}},
	{"fi", "fin", "", "Finnish", []string{"finnish"}},
	{"uk", "ukr", "", "Ukrainian", []string{"ukrainian"}},
}

// Index maps built at init time.
var (
	byCode2 map[string]*entry
	byCode3 map[string]*entry
	byWord  map[string]*entry
)

func init() {
	byCode2 = make(map[string]*entry, len(languages))
	byCode3 = make(map[string]*entry, len(languages)*2)
	byWord = make(map[string]*entry, len(languages))
	for i := range languages {
		e := &languages[i]
		byCode2[e.code2] = e
		byCode3[e.code3] = e
		if e.alt3 != "" {
			byCode3[e.alt3] = e
		}
		for _, w := range e.words {
			byWord[w] = e
		}
	}
}

func lookup(code string) *entry {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return nil
	}
	if e, ok := byCode2[code]; ok {
		return e
	}
	if e, ok := byCode3[code]; ok {
		return e
	}
	if e, ok := byWord[code]; ok {
		return e
	}
	return nil
}

// ToISO2 converts any recognized language code or word to ISO 639-1 (2-letter).
// Returns empty string for unrecognized input.
// If the input is already a 2-letter code (even if unknown), it passes through.
func ToISO2(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return ""
	}
	if e := lookup(code); e != nil {
		return e.code2
	}
	if len(code) == 2 {
		return code
	}
	return ""
}

// Normalize maps any recognized code or language word to its ISO 639-1 form.
// The auto sentinel passes through; unrecognized input returns empty.
func Normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == AutoCode {
		return AutoCode
	}
	return ToISO2(code)
}

// Known reports whether code is the auto sentinel or resolves to a
// supported language.
func Known(code string) bool {
	return Normalize(code) != ""
}

// DisplayName returns a human-readable language name for any recognized code.
// Returns "Auto-detect" for the auto sentinel, "Unknown" for empty input, or
// the uppercased code for unrecognized input.
func DisplayName(code string) string {
	trimmed := strings.ToLower(strings.TrimSpace(code))
	if trimmed == "" {
		return "Unknown"
	}
	if trimmed == AutoCode {
		return "Auto-detect"
	}
	if e := lookup(trimmed); e != nil {
		return e.display
	}
	return strings.ToUpper(trimmed)
}

// Option is one selectable language for the upload form.
type Option struct {
	Code string
	Name string
}

// Options lists the selectable languages for the upload form, with
// auto-detection first and the rest in table order.
func Options() []Option {
	opts := make([]Option, 0, len(languages)+1)
	opts = append(opts, Option{Code: AutoCode, Name: "Auto-detect"})
	for i := range languages {
		opts = append(opts, Option{Code: languages[i].code2, Name: languages[i].display})
	}
	return opts
}
