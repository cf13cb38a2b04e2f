package report

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"example.com/canview/internal/view"
)

// Language selects the labels used in exported views and summary notices.
type Language string

const (
	LangEnglish Language = "en"
	LangChinese Language = "zh"
)

// ErrUnsupportedLanguage is returned when an unknown language code is requested.
var ErrUnsupportedLanguage = errors.New("report: unsupported language")

// columnKeys follow the order of ViewRow.Cells, with the line number first.
var columnKeys = []string{"col_line", "col_time", "col_from_to", "col_id", "col_data", "col_description"}

//go:embed en.json zh.json
var localeFS embed.FS

var labels = map[Language]map[string]string{}

func init() {
	for lang, file := range map[Language]string{LangEnglish: "en.json", LangChinese: "zh.json"} {
		data, err := localeFS.ReadFile(file)
		if err != nil {
			panic(fmt.Sprintf("report: load labels %s: %v", lang, err))
		}
		var parsed map[string]string
		if err := json.Unmarshal(data, &parsed); err != nil {
			panic(fmt.Sprintf("report: parse labels %s: %v", lang, err))
		}
		labels[lang] = parsed
	}
}

// Translator looks up view labels for one language. Keys missing from a
// non-English table fall back to English, then to the key itself.
type Translator struct {
	lang Language
	data map[string]string
}

// NewTranslator returns an English translator for unknown languages.
func NewTranslator(lang Language) Translator {
	data, ok := labels[lang]
	if !ok {
		lang = LangEnglish
		data = labels[LangEnglish]
	}
	return Translator{lang: lang, data: data}
}

func (t Translator) T(key string) string {
	if val, ok := t.data[key]; ok {
		return val
	}
	if t.lang != LangEnglish {
		if val, ok := labels[LangEnglish][key]; ok {
			return val
		}
	}
	return key
}

func (t Translator) Format(key string, args ...interface{}) string {
	return fmt.Sprintf(t.T(key), args...)
}

// Columns returns the table header shared by the PDF and workbook exports.
func (t Translator) Columns() []string {
	out := make([]string, len(columnKeys))
	for i, key := range columnKeys {
		out[i] = t.T(key)
	}
	return out
}

// SummaryMessage returns the truncation notice shown above a view, for
// example "Showing first 300 of 1200 rows (20 hidden)". It is empty when the
// row cap was not reached.
func (t Translator) SummaryMessage(sum view.Summary) string {
	if !sum.Truncated {
		return ""
	}
	msg := t.Format("truncated", sum.Cap, sum.TotalRaw)
	if sum.Hidden > 0 {
		msg += t.Format("hidden_suffix", sum.Hidden)
	}
	return msg
}

// ParseLanguage maps the --lang flag, the lang config key and the ?lang=
// query parameter onto a Language.
func ParseLanguage(lang string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "", "en", "en-us", "en-gb", "english":
		return LangEnglish, nil
	case "zh", "zh-cn", "zh-hans", "chinese", "中文":
		return LangChinese, nil
	default:
		return LangEnglish, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang)
	}
}
