// Package statements turns OpenDART single-company account filings into a
// year-aligned time series of the headline balance-sheet and income-statement
// accounts.
package statements

// StatusOK is the OpenDART status code for a successful query.
const StatusOK = "000"

// Statement divisions (sj_div) and consolidation flags (fs_div) as OpenDART sends them.
const (
	DivisionBalanceSheet    = "BS"
	DivisionIncomeStatement = "IS"

	DivConsolidated = "CFS"
	DivSeparate     = "OFS"
)

// Flag selects consolidated or separate statements in a TimeSeries.
type Flag string

const (
	FlagConsolidated Flag = "cfs"
	FlagSeparate     Flag = "ofs"
)

// Flags lists both consolidation flags in output order.
var Flags = []Flag{FlagConsolidated, FlagSeparate}

// Valid reports whether f is a known flag.
func (f Flag) Valid() bool {
	return f == FlagConsolidated || f == FlagSeparate
}

// DisplayName is the Korean statement name for the flag.
func (f Flag) DisplayName() string {
	if f == FlagConsolidated {
		return "연결재무제표"
	}
	return "개별재무제표"
}

// RawLine is one row of fnlttSinglAcnt.json as received.
type RawLine struct {
	RceptNo         string `json:"rcept_no"`
	BsnsYear        string `json:"bsns_year"`
	CorpCode        string `json:"corp_code"`
	StockCode       string `json:"stock_code"`
	ReprtCode       string `json:"reprt_code"`
	AccountNm       string `json:"account_nm"`
	FsDiv           string `json:"fs_div"`
	FsNm            string `json:"fs_nm"`
	SjDiv           string `json:"sj_div"`
	SjNm            string `json:"sj_nm"`
	ThstrmNm        string `json:"thstrm_nm"`
	ThstrmDt        string `json:"thstrm_dt"`
	ThstrmAmount    string `json:"thstrm_amount"`
	FrmtrmNm        string `json:"frmtrm_nm"`
	FrmtrmDt        string `json:"frmtrm_dt"`
	FrmtrmAmount    string `json:"frmtrm_amount"`
	BfefrmtrmNm     string `json:"bfefrmtrm_nm"`
	BfefrmtrmDt     string `json:"bfefrmtrm_dt"`
	BfefrmtrmAmount string `json:"bfefrmtrm_amount"`
	Ord             string `json:"ord"`
	Currency        string `json:"currency"`
}

// Filing is the fnlttSinglAcnt.json envelope.
type Filing struct {
	Status  string    `json:"status"`
	Message string    `json:"message"`
	List    []RawLine `json:"list"`
}

// Line is a normalized statement row with parsed amounts.
type Line struct {
	AccountNm       string `json:"account_nm"`
	ThstrmNm        string `json:"thstrm_nm"`
	ThstrmDt        string `json:"thstrm_dt"`
	ThstrmAmount    int64  `json:"thstrm_amount"`
	FrmtrmNm        string `json:"frmtrm_nm"`
	FrmtrmDt        string `json:"frmtrm_dt"`
	FrmtrmAmount    int64  `json:"frmtrm_amount"`
	BfefrmtrmNm     string `json:"bfefrmtrm_nm"`
	BfefrmtrmDt     string `json:"bfefrmtrm_dt"`
	BfefrmtrmAmount int64  `json:"bfefrmtrm_amount"`
	Ord             string `json:"ord"`
	Currency        string `json:"currency"`
}

// Buckets holds one statement's lines split by consolidation flag.
type Buckets struct {
	CFS []Line `json:"cfs"`
	OFS []Line `json:"ofs"`
}

// Lines returns the bucket for flag.
func (b Buckets) Lines(flag Flag) []Line {
	if flag == FlagConsolidated {
		return b.CFS
	}
	return b.OFS
}

// Metadata identifies the filing a YearStatement came from.
type Metadata struct {
	RceptNo   string `json:"rcept_no,omitempty"`
	BsnsYear  string `json:"bsns_year,omitempty"`
	CorpCode  string `json:"corp_code,omitempty"`
	StockCode string `json:"stock_code,omitempty"`
	ReprtCode string `json:"reprt_code,omitempty"`
	ReprtName string `json:"reprt_name,omitempty"`
}

// YearStatement is one fiscal year's normalized filing.
type YearStatement struct {
	Year            int      `json:"year"`
	BalanceSheet    Buckets  `json:"balance_sheet"`
	IncomeStatement Buckets  `json:"income_statement"`
	Metadata        Metadata `json:"metadata"`
}

// Entry is one year of a tracked account.
type Entry struct {
	Year   int    `json:"year"`
	Amount int64  `json:"amount"`
	Period string `json:"period"`
	Date   string `json:"date"`
}

// Period labels one retrieved fiscal year.
type Period struct {
	Year   int    `json:"year"`
	Period string `json:"period"`
	Label  string `json:"label"`
}

// AccountSeries maps a tracked account name to its year-aligned entries.
type AccountSeries map[string][]Entry

// TimeSeries is the merged multi-year result. Every series in BalanceSheet
// and IncomeStatement has exactly one entry per element of Years, in order.
type TimeSeries struct {
	Years           []int                  `json:"years"`
	Periods         []Period               `json:"periods"`
	BalanceSheet    map[Flag]AccountSeries `json:"balance_sheet"`
	IncomeStatement map[Flag]AccountSeries `json:"income_statement"`
	Metadata        Metadata               `json:"metadata"`
	DetailedData    []YearStatement        `json:"detailed_data,omitempty"`
}
