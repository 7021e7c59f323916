package card

import (
	"golang.org/x/text/language"
)

// Translation keys.
const (
	msgNoAlerts    = "no_alerts"
	msgArea        = "area"
	msgType        = "type"
	msgSeverity    = "severity"
	msgSent        = "sent"
	msgShowDetails = "show_details"
	msgHideDetails = "hide_details"
	msgUnknown     = "unknown"
)

// English is first so it doubles as the matcher's default.
var supportedLanguages = []language.Tag{language.English, language.Swedish}

var languageMatcher = language.NewMatcher(supportedLanguages)

var dictionaries = map[language.Tag]map[string]string{
	language.English: {
		msgNoAlerts:    "No alerts",
		msgArea:        "Area",
		msgType:        "Type",
		msgSeverity:    "Severity",
		msgSent:        "Sent",
		msgShowDetails: "Show details",
		msgHideDetails: "Hide details",
		msgUnknown:     "Unknown",
	},
	language.Swedish: {
		msgNoAlerts:    "Inga varningar",
		msgArea:        "Område",
		msgType:        "Typ",
		msgSeverity:    "Allvarlighetsgrad",
		msgSent:        "Skickat",
		msgShowDetails: "Visa detaljer",
		msgHideDetails: "Dölj detaljer",
		msgUnknown:     "Okänt",
	},
}

// displayLanguage maps a host language tag onto a supported UI language.
// Anything that is not a confident match is shown in English.
func displayLanguage(lang string) language.Tag {
	tag, err := language.Parse(lang)
	if err != nil {
		return language.English
	}
	_, idx, conf := languageMatcher.Match(tag)
	if conf < language.High {
		return language.English
	}
	return supportedLanguages[idx]
}

// Translate returns the UI string for key in lang. Unknown keys are returned
// unchanged.
func Translate(lang, key string) string {
	if s, ok := dictionaries[displayLanguage(lang)][key]; ok {
		return s
	}
	return key
}
