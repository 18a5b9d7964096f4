package statements

import (
	"strconv"
	"strings"
)

// ParseAmount converts an OpenDART amount such as "9,999,999,999" to an
// integer. Blank, "-" and anything unparseable yield 0.
func ParseAmount(text string) int64 {
	text = strings.TrimSpace(text)
	if text == "" || text == "-" {
		return 0
	}
	n, err := strconv.ParseInt(strings.ReplaceAll(text, ",", ""), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
