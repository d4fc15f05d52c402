package places

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/FACorreiaa/go-coffee-finder/internal/types"
)

// Address is a US formatted address split into its parts.
type Address struct {
	Street string
	City   string
	State  string
	Zip    string
}

var stateZipPattern = regexp.MustCompile(`([A-Z]{2})\s+(\d{5}(-\d{4})?)`)

// ParseAddress splits "123 Main St, Austin, TX 78701" into street, city,
// state and zip. Parts that cannot be found are left empty.
func ParseAddress(formatted string) Address {
	parts := strings.Split(formatted, ", ")
	n := len(parts)
	var addr Address
	if m := stateZipPattern.FindStringSubmatch(parts[n-1]); m != nil {
		addr.State = m[1]
		addr.Zip = m[2]
	}
	if n >= 2 {
		addr.City = parts[n-2]
	}
	if n > 2 {
		addr.Street = strings.Join(parts[:n-2], ", ")
	}
	return addr
}

var priceAdjectives = map[string]int{
	"inexpensive":    1,
	"moderate":       2,
	"expensive":      3,
	"very expensive": 4,
}

// ParsePriceLevel turns "$$", "$10–20" or "Moderate" into a level between 1
// and 4. Anything else is unknown and yields nil.
func ParsePriceLevel(price string) *int {
	if n := strings.Count(price, "$"); n > 0 {
		n = min(n, 4)
		return &n
	}
	if level, ok := priceAdjectives[strings.ToLower(strings.TrimSpace(price))]; ok {
		return &level
	}
	return nil
}

var coffeeTypes = map[string]struct{}{
	"cafe":          {},
	"coffee_shop":   {},
	"coffee shop":   {},
	"bakery":        {},
	"restaurant":    {},
	"food":          {},
	"establishment": {},
}

// IsCoffeeRelated reports whether any of the provider place types is on the
// coffee allow-list.
func IsCoffeeRelated(placeTypes []string) bool {
	for _, t := range placeTypes {
		if _, ok := coffeeTypes[strings.ToLower(t)]; ok {
			return true
		}
	}
	return false
}

var categoryNames = map[string]string{
	"cafe":          "Coffee Shop",
	"coffee_shop":   "Coffee Shop",
	"bakery":        "Bakery",
	"restaurant":    "Restaurant",
	"food":          "Food & Beverage",
	"establishment": "Business",
}

const maxCategories = 3

// ExtractCategories maps provider place types to display categories, keeping
// at most three distinct ones.
func ExtractCategories(placeTypes []string) []string {
	categories := make([]string, 0, maxCategories)
	seen := make(map[string]struct{}, maxCategories)
	for _, t := range placeTypes {
		if len(categories) == maxCategories {
			break
		}
		name, ok := categoryNames[strings.ToLower(t)]
		if !ok {
			name = titleCase(strings.ReplaceAll(t, "_", " "))
		}
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		categories = append(categories, name)
	}
	return categories
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

var (
	opensPattern  = regexp.MustCompile(`(?i)opens\s+(\d{1,2}:?\d{0,2})\s*(am|pm)`)
	closesPattern = regexp.MustCompile(`(?i)closes?\s+(\d{1,2}:?\d{0,2})\s*(am|pm)`)
	dayRange      = regexp.MustCompile(`(?i)(\d{1,2}:\d{2}\s*[AP]M)\s*-\s*(\d{1,2}:\d{2}\s*[AP]M)`)
)

const (
	defaultOpen  = "6:00 AM"
	defaultClose = "10:00 PM"
)

// hoursRule inspects a free-text hours summary. matched stops evaluation;
// a matched rule may still return nil hours.
type hoursRule struct {
	name  string
	apply func(text, lower string) (hours types.Hours, matched bool)
}

var hoursRules = []hoursRule{
	{
		name: "open 24 hours",
		apply: func(_, lower string) (types.Hours, bool) {
			if !strings.Contains(lower, "open 24 hours") && !strings.Contains(lower, "24 hours") {
				return nil, false
			}
			return everyDay("12:00 AM", "11:59 PM"), true
		},
	},
	{
		name: "closed, opens later",
		apply: func(text, lower string) (types.Hours, bool) {
			if !strings.Contains(lower, "closed") {
				return nil, false
			}
			m := opensPattern.FindStringSubmatch(text)
			if m == nil {
				return nil, true
			}
			return everyDay(clockTime(m[1], m[2]), defaultClose), true
		},
	},
	{
		name: "open, closes later",
		apply: func(text, lower string) (types.Hours, bool) {
			m := closesPattern.FindStringSubmatch(text)
			if m == nil || !strings.Contains(lower, "open") {
				return nil, false
			}
			return everyDay(defaultOpen, clockTime(m[1], m[2])), true
		},
	},
}

// ParseHours accepts the provider hours field, which is either a free-text
// summary ("Open ⋅ Closes 5 PM") or an object of day name to time range.
// Unparseable input yields nil, never an error.
func ParseHours(raw json.RawMessage) types.Hours {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return ParseHoursText(text)
	}
	var days map[string]string
	if err := json.Unmarshal(raw, &days); err == nil {
		return ParseHoursByDay(days)
	}
	return nil
}

func ParseHoursText(text string) types.Hours {
	lower := strings.ToLower(text)
	for _, rule := range hoursRules {
		if hours, ok := rule.apply(text, lower); ok {
			return hours
		}
	}
	return nil
}

// ParseHoursByDay converts {"Monday": "9:00 AM - 5:00 PM"} style hours. A day
// without a recognisable range is marked closed.
func ParseHoursByDay(days map[string]string) types.Hours {
	if len(days) == 0 {
		return nil
	}
	hours := make(types.Hours, len(days))
	for day, text := range days {
		key := strings.ToLower(strings.TrimSpace(day))
		if strings.Contains(strings.ToLower(text), "closed") {
			hours[key] = types.DayHours{IsClosed: true}
			continue
		}
		m := dayRange.FindStringSubmatch(text)
		if m == nil {
			hours[key] = types.DayHours{IsClosed: true}
			continue
		}
		hours[key] = types.DayHours{Open: m[1], Close: m[2]}
	}
	return hours
}

func everyDay(open, close string) types.Hours {
	hours := make(types.Hours, len(types.Weekdays))
	for _, day := range types.Weekdays {
		hours[day] = types.DayHours{Open: open, Close: close}
	}
	return hours
}

// clockTime normalizes ("7", "am") to "7:00 AM".
func clockTime(clock, meridiem string) string {
	if !strings.Contains(clock, ":") {
		clock += ":00"
	}
	return clock + " " + strings.ToUpper(meridiem)
}
