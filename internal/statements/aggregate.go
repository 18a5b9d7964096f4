package statements

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/bobmcallan/dart-portal/internal/common"
	"github.com/bobmcallan/dart-portal/internal/faults"
)

// WindowYears is the number of fiscal years fetched per request.
const WindowYears = 5

// DefaultFetchTimeout bounds each per-year upstream call.
const DefaultFetchTimeout = 30 * time.Second

// Tracked accounts. Matching is exact on account_nm: a filing that renames
// an account shows up as a zero entry for that year.
var (
	BalanceSheetAccounts = []string{
		"자산총계", "부채총계", "자본총계",
		"유동자산", "비유동자산", "유동부채", "비유동부채",
	}
	IncomeStatementAccounts = []string{
		"매출액", "영업이익", "당기순이익(손실)", "법인세차감전 순이익",
	}
)

// Source fetches one year of single-company key accounts.
type Source interface {
	FetchSingleAccounts(ctx context.Context, corpCode string, year int, reportCode string) (*Filing, error)
}

// Aggregator fetches a five-year window and merges it into a TimeSeries.
type Aggregator struct {
	source  Source
	logger  *common.Logger
	timeout time.Duration
}

// NewAggregator creates an aggregator. A zero timeout uses DefaultFetchTimeout.
func NewAggregator(source Source, logger *common.Logger, timeout time.Duration) *Aggregator {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &Aggregator{source: source, logger: logger, timeout: timeout}
}

// WindowFor returns the fiscal years fetched for baseYear, oldest first.
func WindowFor(baseYear int) []int {
	years := make([]int, 0, WindowYears)
	for y := baseYear - WindowYears + 1; y <= baseYear; y++ {
		years = append(years, y)
	}
	return years
}

// Fetch retrieves baseYear-4..baseYear one year at a time. Years that fail
// for any reason are logged and skipped; only a window with no usable year
// is an error.
func (a *Aggregator) Fetch(ctx context.Context, corpCode string, baseYear int, reportCode string) (*TimeSeries, error) {
	if corpCode == "" {
		return nil, faults.Validation("회사 고유번호가 필요합니다.", "corp_code 파라미터에 8자리 고유번호를 전달하세요.")
	}
	if reportCode == "" {
		reportCode = DefaultReportCode
	}

	var collected []YearStatement
	for _, year := range WindowFor(baseYear) {
		if ctx.Err() != nil {
			break
		}
		ys, err := a.fetchYear(ctx, corpCode, year, reportCode)
		if err != nil {
			a.logger.Warn().
				Str("corp_code", corpCode).
				Int("year", year).
				Str("reprt_code", reportCode).
				Str("error", err.Error()).
				Msg("skipping fiscal year")
			continue
		}
		collected = append(collected, ys)
	}

	// a caller that went away gets its own error, not a missing-data verdict
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(collected) == 0 {
		return nil, faults.NoData("조회된 데이터가 없습니다. 다른 연도를 선택해주세요.",
			fmt.Sprintf("%d~%d년 %s 데이터가 OpenDART에 없습니다.", baseYear-WindowYears+1, baseYear, ReportName(reportCode)))
	}

	a.logger.Debug().
		Str("corp_code", corpCode).
		Int("requested", WindowYears).
		Int("retrieved", len(collected)).
		Msg("multi-year fetch complete")

	return Merge(collected), nil
}

// fetchYear returns an error for anything short of status 000 with rows.
func (a *Aggregator) fetchYear(ctx context.Context, corpCode string, year int, reportCode string) (YearStatement, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	filing, err := a.source.FetchSingleAccounts(callCtx, corpCode, year, reportCode)
	if err != nil {
		return YearStatement{}, err
	}
	if filing == nil {
		return YearStatement{}, fmt.Errorf("empty response")
	}
	if filing.Status != StatusOK {
		return YearStatement{}, fmt.Errorf("status %s: %s", filing.Status, filing.Message)
	}
	if len(filing.List) == 0 {
		return YearStatement{}, fmt.Errorf("status %s with no rows", filing.Status)
	}

	ys := Normalize(filing.List)
	ys.Year = year
	return ys, nil
}

// Merge folds per-year statements, in the order given, into a dense TimeSeries.
func Merge(years []YearStatement) *TimeSeries {
	ts := &TimeSeries{
		Years:           make([]int, 0, len(years)),
		Periods:         make([]Period, 0, len(years)),
		BalanceSheet:    make(map[Flag]AccountSeries, len(Flags)),
		IncomeStatement: make(map[Flag]AccountSeries, len(Flags)),
		DetailedData:    years,
	}
	if len(years) == 0 {
		return ts
	}

	for _, ys := range years {
		ts.Years = append(ts.Years, ys.Year)
		ts.Periods = append(ts.Periods, periodFor(ys))
	}
	ts.Metadata = years[len(years)-1].Metadata

	for _, flag := range Flags {
		ts.BalanceSheet[flag] = buildSeries(years, BalanceSheetAccounts, func(ys YearStatement) []Line {
			return ys.BalanceSheet.Lines(flag)
		})
		ts.IncomeStatement[flag] = buildSeries(years, IncomeStatementAccounts, func(ys YearStatement) []Line {
			return ys.IncomeStatement.Lines(flag)
		})
	}

	return ts
}

func periodFor(ys YearStatement) Period {
	fallback := strconv.Itoa(ys.Year) + "년"
	if cfs := ys.BalanceSheet.CFS; len(cfs) > 0 && cfs[0].ThstrmNm != "" {
		name := cfs[0].ThstrmNm
		return Period{Year: ys.Year, Period: name, Label: fmt.Sprintf("%s (%d)", name, ys.Year)}
	}
	return Period{Year: ys.Year, Period: fallback, Label: fallback}
}

func buildSeries(years []YearStatement, accounts []string, bucket func(YearStatement) []Line) AccountSeries {
	series := make(AccountSeries, len(accounts))
	for _, account := range accounts {
		entries := make([]Entry, 0, len(years))
		for _, ys := range years {
			entry := Entry{Year: ys.Year}
			if line, ok := findAccount(bucket(ys), account); ok {
				entry.Amount = line.ThstrmAmount
				entry.Period = line.ThstrmNm
				entry.Date = line.ThstrmDt
			}
			entries = append(entries, entry)
		}
		series[account] = entries
	}
	return series
}

// findAccount returns the first line named exactly account.
func findAccount(lines []Line, account string) (Line, bool) {
	for _, l := range lines {
		if l.AccountNm == account {
			return l, true
		}
	}
	return Line{}, false
}
