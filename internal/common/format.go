package common

import (
	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// eokExponent scales won to 억 (10^8).
const eokExponent = -8

// FormatEok renders a won amount in 억 with thousands separators and no
// decimals, rounding half to even.
func FormatEok(amount int64) string {
	rounded := decimal.New(amount, eokExponent).RoundBank(0)
	if rounded.IsZero() && amount < 0 {
		// small negative amounts keep their sign
		return "-0"
	}
	return humanize.Comma(rounded.IntPart())
}

// FormatCount renders an integer count with thousands separators.
func FormatCount(n int) string {
	return humanize.Comma(int64(n))
}

// FormatBytes renders a byte count such as "3.4 MB".
func FormatBytes(n int) string {
	return humanize.Bytes(uint64(max(n, 0)))
}
