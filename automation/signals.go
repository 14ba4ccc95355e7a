package automation

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"ascentcrm/models"
)

// Signal is one candidate scoring event extracted from interaction text.
type Signal struct {
	Type    models.EventType
	Payload models.EventPayload
}

// Destination catalog the extractor matches against. Lowercase; matched as
// substrings of the lowercased input.
var knownDestinations = map[string]string{
	"everest base camp": "Everest Base Camp",
	"everest":           "Everest Base Camp",
	"kilimanjaro":       "Kilimanjaro",
	"annapurna":         "Annapurna Circuit",
	"inca trail":        "Inca Trail",
	"machu picchu":      "Inca Trail",
	"patagonia":         "Patagonia",
	"torres del paine":  "Torres del Paine",
	"mont blanc":        "Mont Blanc",
	"toubkal":           "Toubkal",
	"aconcagua":         "Aconcagua",
	"elbrus":            "Elbrus",
	"denali":            "Denali",
	"k2 base camp":      "K2 Base Camp",
}

var monthNames = []string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

var seasonNames = []string{"spring", "summer", "autumn", "fall", "winter", "monsoon"}

// Budget patterns in priority order; the first match wins.
var budgetPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)([$€£])\s*([0-9][0-9,]*(?:\.[0-9]+)?)\s*(k)?`),
	regexp.MustCompile(`(?i)\b([0-9][0-9,]*(?:\.[0-9]+)?)\s*(k)?\s*(usd|eur|gbp|dollars|euros|pounds)\b`),
	regexp.MustCompile(`(?i)\bbudget(?:\s+(?:of|is|around|about))?\s+\$?([0-9][0-9,]*(?:\.[0-9]+)?)\s*(k)?\b`),
}

var (
	specificDateRe = regexp.MustCompile(`(?i)\b(?:(january|february|march|april|may|june|july|august|september|october|november|december)\s+([0-9]{1,2})(?:\s*[-–]\s*([0-9]{1,2}))?|([0-9]{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?(january|february|march|april|may|june|july|august|september|october|november|december)|([0-9]{4}-[0-9]{2}-[0-9]{2}))\b`)
	partySizeRe    = regexp.MustCompile(`(?i)\b(?:(?:party|group|family)\s+of\s+([0-9]{1,2})|([0-9]{1,2})\s+(?:people|persons|adults|travellers|travelers|climbers|trekkers|hikers)|([0-9]{1,2})\s+of\s+us)\b`)
)

var intentClasses = []struct {
	eventType models.EventType
	re        *regexp.Regexp
}{
	{models.EventAvailabilityAsked, regexp.MustCompile(`(?i)\b(availability|available|spots?\s+(?:left|open)|any\s+spots|open\s+dates|still\s+have)\b`)},
	{models.EventQuoteRequested, regexp.MustCompile(`(?i)\b(quote|quotation|price|pricing|cost|rates|how\s+much)\b`)},
	{models.EventBookingAsked, regexp.MustCompile(`(?i)\b(book|booking|reserve|reservation|sign\s+up|secure\s+(?:a|my|our)\s+spot)\b`)},
	{models.EventPaymentAsked, regexp.MustCompile(`(?i)\b(deposit|payment|pay\s+(?:now|online|the)|installments?|invoice)\b`)},
}

// ExtractSignals maps raw interaction text to an ordered set of candidate
// events. At most one signal fires per category (budget, dates, destinations,
// party size), while the four intent classes fire independently. If nothing
// matches, a single low-weight activity_continued signal is emitted so every
// interaction still registers engagement. Specific dates without a year are
// resolved against the current date, rolling forward to the next occurrence.
func ExtractSignals(text string) []Signal {
	lower := strings.ToLower(text)
	var signals []Signal

	if sig, ok := extractBudget(text); ok {
		signals = append(signals, sig)
	}
	if sig, ok := extractDates(lower); ok {
		signals = append(signals, sig)
	}
	if sig, ok := extractDestinations(lower); ok {
		signals = append(signals, sig)
	}
	if sig, ok := extractPartySize(text); ok {
		signals = append(signals, sig)
	}
	for _, class := range intentClasses {
		if class.re.MatchString(text) {
			signals = append(signals, Signal{Type: class.eventType})
		}
	}

	if len(signals) == 0 {
		signals = append(signals, Signal{Type: models.EventActivityContinued})
	}
	return signals
}

func extractBudget(text string) (Signal, bool) {
	for i, re := range budgetPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}

		var raw, thousands, currency string
		switch i {
		case 0:
			currency = symbolCurrency(m[1])
			raw, thousands = m[2], m[3]
		case 1:
			raw, thousands = m[1], m[2]
			currency = wordCurrency(m[3])
		case 2:
			raw, thousands = m[1], m[2]
			currency = "USD"
		}

		amount, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
		if err != nil {
			continue
		}
		if strings.EqualFold(thousands, "k") {
			amount *= 1000
		}
		return Signal{
			Type:    models.EventBudgetMentioned,
			Payload: models.EventPayload{Amount: amount, Currency: currency},
		}, true
	}
	return Signal{}, false
}

// extractDates applies date-beats-month-beats-season specificity.
func extractDates(lower string) (Signal, bool) {
	if m := specificDateRe.FindStringSubmatch(lower); m != nil {
		if start, end, ok := normalizeDateMatch(m, time.Now()); ok {
			return Signal{
				Type: models.EventDatesMentioned,
				Payload: models.EventPayload{
					Specificity: models.DateSpecificityDate,
					DateStart:   start,
					DateEnd:     end,
				},
			}, true
		}
	}
	for _, month := range monthNames {
		if containsWord(lower, month) {
			return Signal{
				Type: models.EventDatesMentioned,
				Payload: models.EventPayload{
					Specificity: models.DateSpecificityMonth,
					Month:       month,
				},
			}, true
		}
	}
	for _, season := range seasonNames {
		if containsWord(lower, season) {
			return Signal{
				Type: models.EventDatesMentioned,
				Payload: models.EventPayload{
					Specificity: models.DateSpecificitySeason,
					Season:      season,
				},
			}, true
		}
	}
	return Signal{}, false
}

// normalizeDateMatch turns a specificDateRe submatch into ISO 8601 dates.
// Mentions without a year resolve to the next occurrence of that day, so
// "march 14" said in October means March of the following year. A range end
// only counts when it lands on or after the start day in the same month.
func normalizeDateMatch(m []string, now time.Time) (start, end string, ok bool) {
	if m[6] != "" {
		parsed, err := time.Parse("2006-01-02", m[6])
		if err != nil {
			return "", "", false
		}
		return parsed.Format("2006-01-02"), "", true
	}

	monthName, dayStr := m[1], m[2]
	if monthName == "" {
		monthName, dayStr = m[5], m[4]
	}
	month := 0
	for i, name := range monthNames {
		if name == monthName {
			month = i + 1
			break
		}
	}
	day, err := strconv.Atoi(dayStr)
	if month == 0 || err != nil || day < 1 || day > 31 {
		return "", "", false
	}

	year := now.Year()
	startDate := fmt.Sprintf("%04d-%02d-%02d", year, month, day)
	if startDate < now.Format("2006-01-02") {
		year++
		startDate = fmt.Sprintf("%04d-%02d-%02d", year, month, day)
	}
	if _, err := time.Parse("2006-01-02", startDate); err != nil {
		return "", "", false
	}

	if m[3] != "" {
		if endDay, err := strconv.Atoi(m[3]); err == nil && endDay >= day && endDay <= 31 {
			endDate := fmt.Sprintf("%04d-%02d-%02d", year, month, endDay)
			if _, err := time.Parse("2006-01-02", endDate); err == nil {
				end = endDate
			}
		}
	}
	return startDate, end, true
}

// extractDestinations unions all catalog matches, deduplicated by canonical
// name.
func extractDestinations(lower string) (Signal, bool) {
	seen := make(map[string]bool)
	var destinations []string
	for alias, canonical := range knownDestinations {
		if strings.Contains(lower, alias) && !seen[canonical] {
			seen[canonical] = true
			destinations = append(destinations, canonical)
		}
	}
	if len(destinations) == 0 {
		return Signal{}, false
	}
	sort.Strings(destinations)
	return Signal{
		Type:    models.EventDestinationMentioned,
		Payload: models.EventPayload{Destinations: destinations},
	}, true
}

func extractPartySize(text string) (Signal, bool) {
	m := partySizeRe.FindStringSubmatch(text)
	if m == nil {
		return Signal{}, false
	}
	for _, group := range m[1:] {
		if group == "" {
			continue
		}
		size, err := strconv.Atoi(group)
		if err != nil || size == 0 {
			continue
		}
		return Signal{
			Type:    models.EventPartySizeMentioned,
			Payload: models.EventPayload{PartySize: size},
		}, true
	}
	return Signal{}, false
}

func symbolCurrency(symbol string) string {
	switch symbol {
	case "€":
		return "EUR"
	case "£":
		return "GBP"
	default:
		return "USD"
	}
}

func wordCurrency(word string) string {
	switch strings.ToLower(word) {
	case "eur", "euros":
		return "EUR"
	case "gbp", "pounds":
		return "GBP"
	default:
		return "USD"
	}
}

func containsWord(text, word string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		before := start == 0 || !isWordChar(text[start-1])
		after := end == len(text) || !isWordChar(text[end])
		if before && after {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
