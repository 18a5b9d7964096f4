package statements

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/bobmcallan/dart-portal/internal/common"
	"github.com/bobmcallan/dart-portal/internal/faults"
)

type fakeSource struct {
	filings map[int]*Filing
	errs    map[int]error
	calls   []int
}

func (f *fakeSource) FetchSingleAccounts(ctx context.Context, corpCode string, year int, reportCode string) (*Filing, error) {
	f.calls = append(f.calls, year)
	if err := f.errs[year]; err != nil {
		return nil, err
	}
	if filing, ok := f.filings[year]; ok {
		return filing, nil
	}
	return &Filing{Status: "013", Message: "조회된 데이타가 없습니다."}, nil
}

// hangingSource blocks until the per-call context ends for the hang year.
type hangingSource struct {
	fakeSource
	hang int
}

func (h *hangingSource) FetchSingleAccounts(ctx context.Context, corpCode string, year int, reportCode string) (*Filing, error) {
	if year == h.hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return h.fakeSource.FetchSingleAccounts(ctx, corpCode, year, reportCode)
}

func yearFiling(year int, assets string) *Filing {
	y := strconv.Itoa(year)
	line := func(sj, fs, account, amount string) RawLine {
		return RawLine{
			RceptNo:      y + "0312000736",
			BsnsYear:     y,
			CorpCode:     "00126380",
			StockCode:    "005930",
			ReprtCode:    "11011",
			SjDiv:        sj,
			FsDiv:        fs,
			AccountNm:    account,
			ThstrmNm:     "제 " + strconv.Itoa(year-1968) + " 기",
			ThstrmDt:     y + ".12.31 현재",
			ThstrmAmount: amount,
		}
	}
	return &Filing{
		Status: StatusOK,
		List: []RawLine{
			line("BS", "CFS", "자산총계", assets),
			line("BS", "CFS", "부채총계", "100"),
			line("BS", "OFS", "자산총계", "50"),
			line("IS", "CFS", "매출액", "1,000"),
			line("IS", "CFS", "매출액", "9,999"),
		},
	}
}

func newTestAggregator(src Source) *Aggregator {
	return NewAggregator(src, common.NewSilentLogger(), time.Second)
}

func assertDense(t *testing.T, ts *TimeSeries) {
	t.Helper()
	check := func(name string, series map[Flag]AccountSeries, accounts []string) {
		for _, flag := range Flags {
			for _, account := range accounts {
				entries, ok := series[flag][account]
				if !ok {
					t.Fatalf("%s %s %s: missing series", name, flag, account)
				}
				if len(entries) != len(ts.Years) {
					t.Fatalf("%s %s %s: expected %d entries, got %d", name, flag, account, len(ts.Years), len(entries))
				}
				for i, e := range entries {
					if e.Year != ts.Years[i] {
						t.Errorf("%s %s %s[%d]: expected year %d, got %d", name, flag, account, i, ts.Years[i], e.Year)
					}
				}
			}
		}
	}
	check("balance_sheet", ts.BalanceSheet, BalanceSheetAccounts)
	check("income_statement", ts.IncomeStatement, IncomeStatementAccounts)
}

func TestWindowFor(t *testing.T) {
	got := WindowFor(2024)
	want := []int{2020, 2021, 2022, 2023, 2024}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestFetch_PartialYears(t *testing.T) {
	src := &fakeSource{
		filings: map[int]*Filing{
			2021: yearFiling(2021, "1,000"),
			2023: yearFiling(2023, "3,000"),
		},
		errs: map[int]error{
			2020: errors.New("connection reset"),
			2022: context.DeadlineExceeded,
		},
	}

	ts, err := newTestAggregator(src).Fetch(context.Background(), "00126380", 2024, "11011")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fmt.Sprint(src.calls) != "[2020 2021 2022 2023 2024]" {
		t.Errorf("expected sequential calls oldest first, got %v", src.calls)
	}
	if fmt.Sprint(ts.Years) != "[2021 2023]" {
		t.Fatalf("expected years [2021 2023], got %v", ts.Years)
	}
	assertDense(t, ts)

	if ts.Metadata.BsnsYear != "2023" {
		t.Errorf("expected metadata from 2023, got %s", ts.Metadata.BsnsYear)
	}
	if ts.Metadata.ReprtName != "사업보고서" {
		t.Errorf("expected 사업보고서, got %s", ts.Metadata.ReprtName)
	}

	assets := ts.BalanceSheet[FlagConsolidated]["자산총계"]
	if assets[0].Amount != 1000 || assets[1].Amount != 3000 {
		t.Errorf("unexpected assets series: %+v", assets)
	}
	if assets[1].Period != "제 55 기" || assets[1].Date != "2023.12.31 현재" {
		t.Errorf("unexpected period/date: %+v", assets[1])
	}

	// first matching line wins
	revenue := ts.IncomeStatement[FlagConsolidated]["매출액"]
	if revenue[0].Amount != 1000 {
		t.Errorf("expected first 매출액 line (1000), got %d", revenue[0].Amount)
	}

	// absent accounts are zero-filled with empty labels
	missing := ts.BalanceSheet[FlagSeparate]["유동부채"]
	for _, e := range missing {
		if e.Amount != 0 || e.Period != "" || e.Date != "" {
			t.Errorf("expected zero-filled entry, got %+v", e)
		}
	}

	if len(ts.DetailedData) != 2 {
		t.Errorf("expected 2 detailed years, got %d", len(ts.DetailedData))
	}
}

func TestFetch_AllYearsFail(t *testing.T) {
	src := &fakeSource{}

	_, err := newTestAggregator(src).Fetch(context.Background(), "00126380", 2024, "11011")
	if err == nil {
		t.Fatal("expected error when every year fails")
	}
	if !faults.IsKind(err, faults.KindNoData) {
		t.Errorf("expected no_data error, got %v", err)
	}
	if len(src.calls) != WindowYears {
		t.Errorf("expected %d attempts, got %d", WindowYears, len(src.calls))
	}
}

func TestFetch_EmptyListIsSkipped(t *testing.T) {
	src := &fakeSource{
		filings: map[int]*Filing{
			2023: {Status: StatusOK, List: nil},
			2024: yearFiling(2024, "5"),
		},
	}

	ts, err := newTestAggregator(src).Fetch(context.Background(), "00126380", 2024, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fmt.Sprint(ts.Years) != "[2024]" {
		t.Errorf("expected [2024], got %v", ts.Years)
	}
}

func TestFetch_RequiresCorpCode(t *testing.T) {
	_, err := newTestAggregator(&fakeSource{}).Fetch(context.Background(), "", 2024, "11011")
	if !faults.IsKind(err, faults.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestFetch_Idempotent(t *testing.T) {
	src := &fakeSource{
		filings: map[int]*Filing{
			2020: yearFiling(2020, "1"),
			2022: yearFiling(2022, "2"),
			2024: yearFiling(2024, "3"),
		},
	}
	agg := newTestAggregator(src)

	first, err := agg.Fetch(context.Background(), "00126380", 2024, "11011")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := agg.Fetch(context.Background(), "00126380", 2024, "11011")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Error("expected identical output for identical upstream")
	}
}

func TestMerge_PeriodLabels(t *testing.T) {
	withCFS := Normalize(yearFiling(2022, "1").List)
	withCFS.Year = 2022

	onlyOFS := Normalize([]RawLine{{SjDiv: "BS", FsDiv: "OFS", AccountNm: "자산총계", ThstrmAmount: "1"}})
	onlyOFS.Year = 2023

	ts := Merge([]YearStatement{withCFS, onlyOFS})

	if ts.Periods[0].Period != "제 54 기" || ts.Periods[0].Label != "제 54 기 (2022)" {
		t.Errorf("unexpected period for 2022: %+v", ts.Periods[0])
	}
	if ts.Periods[1].Period != "2023년" || ts.Periods[1].Label != "2023년" {
		t.Errorf("unexpected synthesized period for 2023: %+v", ts.Periods[1])
	}
}

func TestMerge_RenamedAccountIsZeroYear(t *testing.T) {
	y1 := Normalize([]RawLine{{SjDiv: "IS", FsDiv: "CFS", AccountNm: "당기순이익(손실)", ThstrmAmount: "10"}})
	y1.Year = 2022
	y2 := Normalize([]RawLine{{SjDiv: "IS", FsDiv: "CFS", AccountNm: "당기순이익", ThstrmAmount: "20"}})
	y2.Year = 2023

	ts := Merge([]YearStatement{y1, y2})

	series := ts.IncomeStatement[FlagConsolidated]["당기순이익(손실)"]
	if series[0].Amount != 10 || series[1].Amount != 0 {
		t.Errorf("expected exact-name match only, got %+v", series)
	}
}

func TestFetch_PerYearTimeout(t *testing.T) {
	src := &hangingSource{
		fakeSource: fakeSource{filings: map[int]*Filing{
			2020: yearFiling(2020, "1"),
			2021: yearFiling(2021, "2"),
			2023: yearFiling(2023, "4"),
			2024: yearFiling(2024, "5"),
		}},
		hang: 2022,
	}
	agg := NewAggregator(src, common.NewSilentLogger(), 20*time.Millisecond)

	start := time.Now()
	ts, err := agg.Fetch(context.Background(), "00126380", 2024, "")
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int{2020, 2021, 2023, 2024}
	if fmt.Sprint(ts.Years) != fmt.Sprint(want) {
		t.Errorf("expected years %v, got %v", want, ts.Years)
	}
	if elapsed > 2*time.Second {
		t.Errorf("expected the hung year to be cut off, took %s", elapsed)
	}
}

func TestFetch_CallerCancelled(t *testing.T) {
	src := &hangingSource{hang: 2020}
	agg := NewAggregator(src, common.NewSilentLogger(), time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := agg.Fetch(ctx, "00126380", 2024, "")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context deadline error, got %v", err)
	}
	if _, ok := faults.As(err); ok {
		t.Errorf("expected a plain context error, got fault %v", err)
	}
	if len(src.calls) != 0 {
		t.Errorf("expected no calls after the caller gave up, got %v", src.calls)
	}
}
