package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSent     = "2024-01-01T10:00:00Z"
	testLangSvSE = "sv-se"
)

func decodeRaw(t *testing.T, data string) []RawAlert {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(data), &v))
	return RawAlerts(v)
}

func TestNormalize_LegacyRecord(t *testing.T) {
	raw := []RawAlert{{"severity": "Severe", "event": "Storm", "sent": testSent}}

	got := Normalize(raw, "en")

	require.Len(t, got, 1)
	assert.Equal(t, "Severe", got[0].Severity)
	assert.Equal(t, "Storm", got[0].Event)
	assert.Equal(t, "", got[0].Area)
	assert.Equal(t, testSent, got[0].Sent)
}

func TestNormalize_LegacyAreasMirrored(t *testing.T) {
	t.Run("areas only", func(t *testing.T) {
		got := Normalize([]RawAlert{{"event": "Flood", "areas": "Uppsala län"}}, "sv")
		require.Len(t, got, 1)
		assert.Equal(t, "Uppsala län", got[0].Area)
	})

	t.Run("area wins over areas", func(t *testing.T) {
		got := Normalize([]RawAlert{{"event": "Flood", "area": "Gävle", "areas": "Uppsala"}}, "sv")
		require.Len(t, got, 1)
		assert.Equal(t, "Gävle", got[0].Area)
	})

	t.Run("list valued", func(t *testing.T) {
		got := Normalize([]RawAlert{{"event": "Flood", "areas": []any{"Gävle", " Gävle ", "Sandviken"}}}, "sv")
		require.Len(t, got, 1)
		assert.Equal(t, "Gävle, Sandviken", got[0].Area)
	})
}

func TestNormalize_LegacyMissingSeverityBecomesUnknown(t *testing.T) {
	got := Normalize([]RawAlert{{"event": "Fire"}}, "sv")
	require.Len(t, got, 1)
	assert.Equal(t, SeverityUnknown, got[0].Severity)
}

func TestNormalize_CAPRecord(t *testing.T) {
	raw := decodeRaw(t, `[{
		"identifier": "KRI-1",
		"sender": "krisinformation.se",
		"msgType": "Alert",
		"sent": "2024-03-01T08:00:00+01:00",
		"info": {
			"event": "Brand",
			"severity": "Severe",
			"urgency": "Immediate",
			"certainty": "Observed",
			"headline": "Brand i industribyggnad",
			"description": "Kraftig rökutveckling.",
			"instruction": "Stäng fönster och ventilation.",
			"web": "https://www.krisinformation.se/1",
			"expires": "2024-03-02T08:00:00+01:00",
			"area": [{"areaDesc": "Västerås"}, {"areaDesc": "Västerås"}, {"areaDesc": " Västmanlands län "}]
		}
	}]`)

	got := Normalize(raw, testLangSvSE)

	want := []Alert{{
		Severity:    "Severe",
		Event:       "Brand",
		Area:        "Västerås, Västmanlands län",
		Headline:    "Brand i industribyggnad",
		Description: "Kraftig rökutveckling.",
		Details:     "Kraftig rökutveckling.\n\nStäng fönster och ventilation.\n\nhttps://www.krisinformation.se/1",
		Sent:        "2024-03-01T08:00:00+01:00",
		Published:   "2024-03-01T08:00:00+01:00",
		Identifier:  "KRI-1",
		URL:         "https://www.krisinformation.se/1",
		Source:      "krisinformation.se",
		Expires:     "2024-03-02T08:00:00+01:00",
		Urgency:     "Immediate",
		Certainty:   "Observed",
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("normalize mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalize_CAPTimestampFallbacks(t *testing.T) {
	t.Run("effective when no sent", func(t *testing.T) {
		got := Normalize([]RawAlert{{"identifier": "x", "info": map[string]any{"event": "E", "effective": "2024-01-02T00:00:00Z", "onset": "2024-01-03T00:00:00Z"}}}, "sv")
		require.Len(t, got, 1)
		assert.Equal(t, "2024-01-02T00:00:00Z", got[0].Sent)
		assert.Equal(t, "2024-01-02T00:00:00Z", got[0].Published)
	})

	t.Run("info sent feeds sent but not published", func(t *testing.T) {
		got := Normalize([]RawAlert{{"identifier": "x", "info": map[string]any{"event": "E", "sent": "2024-01-01T00:00:00Z", "onset": "2024-01-03T00:00:00Z"}}}, "sv")
		require.Len(t, got, 1)
		assert.Equal(t, "2024-01-01T00:00:00Z", got[0].Sent)
		assert.Equal(t, "2024-01-03T00:00:00Z", got[0].Published)
	})
}

func TestNormalize_CAPEmptyInfoDropped(t *testing.T) {
	raw := []RawAlert{
		{"identifier": "empty-1", "info": []any{}},
		{"msgType": "Alert"},
		{"severity": "Minor", "event": "Kept"},
	}

	got := Normalize(raw, "sv")

	require.Len(t, got, 1)
	assert.Equal(t, "Kept", got[0].Event)
}

func TestNormalize_GarbageDropped(t *testing.T) {
	got := NormalizeAttribute([]any{"text", 42.0, nil, map[string]any{}, map[string]any{"event": "Ok"}}, "sv")
	require.Len(t, got, 1)
	assert.Equal(t, "Ok", got[0].Event)

	assert.Empty(t, NormalizeAttribute("not a list", "sv"))
	assert.Empty(t, NormalizeAttribute(nil, "sv"))
}

func TestNormalize_Deterministic(t *testing.T) {
	raw := decodeRaw(t, `[
		{"identifier": "a", "info": [{"language": "en", "event": "Storm", "severity": "Severe", "area": [{"areaDesc": "Gotland"}]}]},
		{"severity": "Minor", "event": "Fog", "area": "Skåne", "sent": "2024-01-01T00:00:00Z"}
	]`)

	first := Normalize(raw, testLangSvSE)
	second := Normalize(raw, testLangSvSE)
	assert.Equal(t, first, second)
}

func TestPickInfo(t *testing.T) {
	en := map[string]any{"language": "en", "event": "Storm"}
	sv := map[string]any{"language": "sv", "event": "Storm (sv)"}
	enUS := map[string]any{"language": "EN-US", "event": "Storm (us)"}
	fi := map[string]any{"language": "fi", "event": "Myrsky"}

	tests := []struct {
		name     string
		info     any
		langPref string
		want     map[string]any
	}{
		{"primary subtag match", []any{en, sv}, testLangSvSE, sv},
		{"exact match first", []any{sv, enUS}, "en-us", enUS},
		{"english host picks en", []any{sv, en}, "en", en},
		{"fallback chain sv before en", []any{en, sv}, "de-de", sv},
		{"fallback en-us before en", []any{en, enUS}, "de", enUS},
		{"no match uses first", []any{fi}, "de", fi},
		{"single object", en, testLangSvSE, en},
		{"empty list", []any{}, testLangSvSE, map[string]any{}},
		{"missing", nil, testLangSvSE, map[string]any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PickInfo(tt.info, tt.langPref))
		})
	}
}

func TestNormalize_LanguageSelection(t *testing.T) {
	raw := decodeRaw(t, `[{"identifier": "x", "info": [
		{"language": "en", "event": "Storm", "severity": "Severe"},
		{"language": "sv", "event": "Storm (sv)", "severity": "Severe"}
	]}]`)

	got := Normalize(raw, testLangSvSE)

	require.Len(t, got, 1)
	assert.Equal(t, "Storm (sv)", got[0].Event)
}

func TestIsCAP(t *testing.T) {
	assert.True(t, IsCAP(RawAlert{"identifier": "x"}))
	assert.True(t, IsCAP(RawAlert{"sender": "y"}))
	assert.True(t, IsCAP(RawAlert{"info": map[string]any{}}))
	assert.False(t, IsCAP(RawAlert{"identifier": ""}))
	assert.False(t, IsCAP(RawAlert{"severity": "Minor"}))
}

func TestLanguageCandidates(t *testing.T) {
	assert.Equal(t, []string{"sv-se", "sv", "sv-se", "sv", "en-us", "en"}, LanguageCandidates("sv-SE"))
	assert.Equal(t, []string{"en-gb", "en", "sv-se", "sv", "en-us", "en"}, LanguageCandidates("en-GB"))
	assert.Equal(t, "fi", PrimarySubtag("fi-FI"))
	assert.Equal(t, "", PrimarySubtag(""))
}

func TestPrimarySubtag_KeepsTagAsWritten(t *testing.T) {
	tests := []struct {
		tag  string
		want string
	}{
		{"iw-IL", "iw"},
		{"tl-PH", "tl"},
		{"sh", "sh"},
		{"SV-se", "sv"},
		{"not a tag", "not a tag"},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			assert.Equal(t, tt.want, PrimarySubtag(tt.tag))
		})
	}
}

func TestPickInfo_DeprecatedLanguageCode(t *testing.T) {
	info := []any{
		map[string]any{"language": "en-US", "headline": "Storm"},
		map[string]any{"language": "iw", "headline": "סערה"},
	}
	assert.Equal(t, "סערה", PickInfo(info, "iw-il")["headline"])
}
