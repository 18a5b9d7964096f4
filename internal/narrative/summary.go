// Package narrative renders a merged TimeSeries into the short Korean brief
// and prompt handed to the text generator.
package narrative

import (
	"fmt"
	"strings"

	"github.com/bobmcallan/dart-portal/internal/common"
	"github.com/bobmcallan/dart-portal/internal/statements"
)

var (
	summaryBalanceAccounts = []string{"자산총계", "부채총계", "자본총계"}
	summaryIncomeAccounts  = []string{"매출액", "영업이익", "당기순이익(손실)"}
)

var rule = strings.Repeat("-", 50)

// Summarize renders ts for the given consolidation flag.
func Summarize(ts *statements.TimeSeries, flag statements.Flag) string {
	if ts == nil {
		return ""
	}
	var lines []string

	if len(ts.Periods) > 0 {
		lo, hi := ts.Periods[0].Year, ts.Periods[0].Year
		for _, p := range ts.Periods {
			lo = min(lo, p.Year)
			hi = max(hi, p.Year)
		}
		lines = append(lines, fmt.Sprintf("📅 분석 기간: %d년 ~ %d년 (%d개년)", lo, hi, len(ts.Periods)), "")
	}

	bs := ts.BalanceSheet[flag]
	if len(bs) > 0 {
		lines = append(lines, "📊 재무상태표 (단위: 억원)", rule)
		lines = appendAccounts(lines, bs, summaryBalanceAccounts)
		lines = append(lines, "")
	}

	is := ts.IncomeStatement[flag]
	if len(is) > 0 {
		lines = append(lines, "💰 손익계산서 (단위: 억원)", rule)
		lines = appendAccounts(lines, is, summaryIncomeAccounts)
		lines = append(lines, "")
	}

	if len(bs) > 0 && len(is) > 0 && len(ts.Periods) > 0 {
		if ratios, ok := ratioLines(bs, is); ok {
			lines = append(lines, "📈 주요 재무 비율 (최근 연도 기준)", rule)
			lines = append(lines, ratios...)
		}
	}

	return strings.Join(lines, "\n")
}

func appendAccounts(lines []string, series statements.AccountSeries, accounts []string) []string {
	for _, account := range accounts {
		entries, ok := series[account]
		if !ok {
			continue
		}
		lines = append(lines, "\n【"+account+"】")
		for _, e := range entries {
			lines = append(lines, fmt.Sprintf("  %d년: %s억원", e.Year, common.FormatEok(e.Amount)))
		}
	}
	return lines
}

// ratioLines computes the latest-year ratios. ok is false when any input
// series is missing, in which case the section is left out.
func ratioLines(bs, is statements.AccountSeries) ([]string, bool) {
	latest := func(series statements.AccountSeries, account string) (float64, bool) {
		entries := series[account]
		if len(entries) == 0 {
			return 0, false
		}
		return float64(entries[len(entries)-1].Amount), true
	}

	liabilities, ok1 := latest(bs, "부채총계")
	equity, ok2 := latest(bs, "자본총계")
	revenue, ok3 := latest(is, "매출액")
	operating, ok4 := latest(is, "영업이익")
	net, ok5 := latest(is, "당기순이익(손실)")
	if _, ok := latest(bs, "자산총계"); !ok || !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
		return nil, false
	}

	var lines []string
	if equity > 0 {
		lines = append(lines, fmt.Sprintf("  부채비율: %.1f%%", liabilities/equity*100))
	}
	if revenue > 0 {
		lines = append(lines, fmt.Sprintf("  영업이익률: %.1f%%", operating/revenue*100))
		lines = append(lines, fmt.Sprintf("  순이익률: %.1f%%", net/revenue*100))
	}
	if equity > 0 {
		lines = append(lines, fmt.Sprintf("  자기자본이익률(ROE): %.1f%%", net/equity*100))
	}
	return lines, true
}

// Truncate shortens s to n runes followed by "..." when it is longer.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
