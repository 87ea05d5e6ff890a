package models

import (
	"sort"

	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Supported storefront languages.
const (
	English  = "en"
	Hindi    = "hi"
	Gujarati = "gu"
)

// Languages are the storefront languages, English first.
var Languages = []language.Tag{
	language.English,
	language.Hindi,
	language.Gujarati,
}

var matcher = language.NewMatcher(Languages)

// Localized maps BCP-47 language codes to text.
type Localized map[string]string

// Text returns the best translation for tag.
// Falls back to English, then to any translation present.
func (l Localized) Text(tag language.Tag) string {
	if len(l) == 0 {
		return ""
	}
	_, idx, _ := matcher.Match(tag)
	if s := l[baseCode(Languages[idx])]; s != "" {
		return s
	}
	if s := l[English]; s != "" {
		return s
	}
	keys := make([]string, 0, len(l))
	for k, v := range l {
		if v != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)
	return l[keys[0]]
}

// In returns the translation for a language code such as "gu" or "hi-IN".
// Unparseable codes are treated as English.
func (l Localized) In(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		tag = language.English
	}
	return l.Text(tag)
}

// Normalize returns a copy with every value in Unicode NFC form.
func (l Localized) Normalize() Localized {
	if l == nil {
		return nil
	}
	out := make(Localized, len(l))
	for k, v := range l {
		out[k] = norm.NFC.String(v)
	}
	return out
}

// ParseLanguage maps a code to a supported language code, English when unsupported.
func ParseLanguage(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return English
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return English
	}
	return baseCode(Languages[idx])
}

func baseCode(tag language.Tag) string {
	base, _ := tag.Base()
	return base.String()
}
