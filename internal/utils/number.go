package utils

import (
	"regexp"
	"strconv"
	"strings"
)

var rxKeepNums = regexp.MustCompile(`[^\d\.\-eE+]`)

// "12,500", "1,234,567": группы по три цифры после каждой запятой
var rxCommaThousands = regexp.MustCompile(`^[-+]?[1-9]\d{0,2}(,\d{3})+$`)

var spaceRepl = strings.NewReplacer(" ", "", "\u00A0", "", "\u2009", "", "\u202F", "", "\t", "")

// ParseNumber парсит значение ячейки как число: "1 234,50", "1,234.50", "(15)", "12%".
// Пустая строка и мусор дают false.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	compact := spaceRepl.Replace(s)
	grouped := compact != s // "1 234,500": тысячи уже отделены пробелами, запятая десятичная
	s = strings.TrimSuffix(compact, "%")

	// "1,234.50" и "12,500": запятая как разделитель тысяч; "1234,5": как десятичная
	switch {
	case strings.Contains(s, ",") && strings.Contains(s, "."):
		if strings.LastIndex(s, ",") < strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		}
	case !grouped && rxCommaThousands.MatchString(s):
		s = strings.ReplaceAll(s, ",", "")
	default:
		s = strings.ReplaceAll(s, ",", ".")
	}

	if rxKeepNums.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if neg {
		f = -f
	}
	return f, true
}

// FormatNumber печатает число без лишних нулей: 3 -> "3", 2.5 -> "2.5".
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
