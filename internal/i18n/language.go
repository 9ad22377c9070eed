// Package i18n resolves the conversation language. Only the three languages
// the hospital data is published in are supported.
package i18n

import (
	"strings"

	"golang.org/x/text/language"
)

// Supported language codes, matching the keys of localized names.
const (
	English = "en"
	Hindi   = "hi"
	Marathi = "mr"
)

var (
	supported = []language.Tag{language.English, language.Hindi, language.Marathi}
	matcher   = language.NewMatcher(supported)
)

// Normalize maps codes and long names ("hindi", "mr-IN") to a supported code.
// Unknown input yields "".
func Normalize(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	switch raw {
	case "":
		return ""
	case "en", "english":
		return English
	case "hi", "hindi":
		return Hindi
	case "mr", "marathi":
		return Marathi
	}
	tag, err := language.Parse(raw)
	if err != nil {
		return ""
	}
	base, _ := tag.Base()
	switch base.String() {
	case English, Hindi, Marathi:
		return base.String()
	}
	return ""
}

// Negotiate picks the language for a request: an explicit choice wins, then the
// Accept-Language header, then fallback.
func Negotiate(explicit, acceptLanguage, fallback string) string {
	if lang := Normalize(explicit); lang != "" {
		return lang
	}
	if strings.TrimSpace(acceptLanguage) != "" {
		tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
		if err == nil && len(tags) > 0 {
			_, idx, conf := matcher.Match(tags...)
			if conf != language.No {
				return codeAt(idx)
			}
		}
	}
	if lang := Normalize(fallback); lang != "" {
		return lang
	}
	return English
}

// LongName returns the long language name used by menu keyword tables.
func LongName(code string) string {
	switch Normalize(code) {
	case Hindi:
		return "hindi"
	case Marathi:
		return "marathi"
	default:
		return "english"
	}
}

func codeAt(idx int) string {
	switch idx {
	case 1:
		return Hindi
	case 2:
		return Marathi
	default:
		return English
	}
}
