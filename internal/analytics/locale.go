package analytics

import "fmt"

// Locale selects the language of bucket labels.
type Locale string

const (
	LocaleRU Locale = "ru"
	LocaleEN Locale = "en"
)

var monthAbbrev = map[Locale][12]string{
	LocaleRU: {"янв", "фев", "мар", "апр", "май", "июн", "июл", "авг", "сен", "окт", "ноя", "дек"},
	LocaleEN: {"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
}

var weekFormat = map[Locale]string{
	LocaleRU: "Нед %d",
	LocaleEN: "Wk %d",
}

// ParseLocale validates s. An empty string yields LocaleRU.
func ParseLocale(s string) (Locale, error) {
	if s == "" {
		return LocaleRU, nil
	}
	l := Locale(s)
	if _, ok := monthAbbrev[l]; !ok {
		return "", fmt.Errorf("unsupported locale %q", s)
	}
	return l, nil
}

func (l Locale) month(i int) string {
	names, ok := monthAbbrev[l]
	if !ok {
		names = monthAbbrev[LocaleRU]
	}
	return names[i]
}

func (l Locale) week(n int) string {
	f, ok := weekFormat[l]
	if !ok {
		f = weekFormat[LocaleRU]
	}
	return fmt.Sprintf(f, n)
}
