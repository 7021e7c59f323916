package card

import (
	"fmt"
	"time"

	"golang.org/x/text/language"

	"github.com/couchcryptid/crisis-alert-card/internal/domain"
)

// DateFormat selects how the sent timestamp is displayed.
type DateFormat string

const (
	DateLocale           DateFormat = "locale"
	DateDayMonthTime     DateFormat = "day_month_time"
	DateWeekdayTime      DateFormat = "weekday_time"
	DateDayMonthTimeYear DateFormat = "day_month_time_year"
)

type calendarNames struct {
	months   [12]string
	weekdays [7]string
	locale   string
}

var calendars = map[language.Tag]calendarNames{
	language.English: {
		months: [12]string{
			"January", "February", "March", "April", "May", "June",
			"July", "August", "September", "October", "November", "December",
		},
		weekdays: [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"},
		locale:   "1/2/2006, 3:04:05 PM",
	},
	language.Swedish: {
		months: [12]string{
			"januari", "februari", "mars", "april", "maj", "juni",
			"juli", "augusti", "september", "oktober", "november", "december",
		},
		weekdays: [7]string{"söndag", "måndag", "tisdag", "onsdag", "torsdag", "fredag", "lördag"},
		locale:   "2006-01-02 15:04:05",
	},
}

// DateFormatter renders timestamps in the card's configured style.
type DateFormatter struct {
	Style    DateFormat
	Language string
	Location *time.Location
}

// Format renders value. Empty input yields "", and input that is not a
// recognised timestamp is returned unchanged.
func (f DateFormatter) Format(value string) string {
	if value == "" {
		return ""
	}
	t, ok := domain.ParseTimestamp(value)
	if !ok {
		return value
	}
	if f.Location != nil {
		t = t.In(f.Location)
	}

	names := calendars[displayLanguage(f.Language)]
	clock := t.Format("15:04")
	switch f.Style {
	case DateWeekdayTime:
		return names.weekdays[t.Weekday()] + " " + clock
	case DateDayMonthTime:
		return fmt.Sprintf("%d %s %s", t.Day(), names.months[t.Month()-1], clock)
	case DateDayMonthTimeYear:
		return fmt.Sprintf("%d %s %d %s", t.Day(), names.months[t.Month()-1], t.Year(), clock)
	default:
		return t.Format(names.locale)
	}
}
