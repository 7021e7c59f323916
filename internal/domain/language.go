package domain

import "strings"

// fallbackLanguages are tried after the caller's preference when choosing
// among language-tagged CAP info blocks. Swedish first: the upstream feed is
// the Swedish national crisis information service.
var fallbackLanguages = []string{"sv-se", "sv", "en-us", "en"}

// LanguageCandidates returns the ordered, lowercased language tags to match
// against: the preference, its primary subtag, then the fixed fallbacks.
func LanguageCandidates(langPref string) []string {
	lp := strings.ToLower(strings.TrimSpace(langPref))
	return append([]string{lp, PrimarySubtag(lp)}, fallbackLanguages...)
}

// PrimarySubtag returns the lowercased first subtag of tag as written, e.g.
// "sv" for "sv-SE" and "iw" for "iw-IL". Deprecated codes are not replaced,
// since info blocks are matched on the literal tag.
func PrimarySubtag(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	primary, _, _ := strings.Cut(tag, "-")
	return primary
}
