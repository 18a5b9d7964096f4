package statements

// reportNames maps OpenDART reprt_code values to report names.
var reportNames = map[string]string{
	"11011": "사업보고서",
	"11012": "반기보고서",
	"11013": "1분기보고서",
	"11014": "3분기보고서",
}

// DefaultReportCode is the annual report.
const DefaultReportCode = "11011"

// ReportName returns the Korean report name for code, or "알 수 없음".
func ReportName(code string) string {
	if name, ok := reportNames[code]; ok {
		return name
	}
	return "알 수 없음"
}

// ValidReportCode reports whether code is one of the four OpenDART report codes.
func ValidReportCode(code string) bool {
	_, ok := reportNames[code]
	return ok
}

// Normalize buckets one year's raw lines by statement division and
// consolidation flag. Lines outside BS/IS × CFS/OFS are dropped.
func Normalize(raw []RawLine) YearStatement {
	ys := YearStatement{
		BalanceSheet:    Buckets{CFS: []Line{}, OFS: []Line{}},
		IncomeStatement: Buckets{CFS: []Line{}, OFS: []Line{}},
	}
	if len(raw) == 0 {
		return ys
	}

	first := raw[0]
	ys.Metadata = Metadata{
		RceptNo:   first.RceptNo,
		BsnsYear:  first.BsnsYear,
		CorpCode:  first.CorpCode,
		StockCode: first.StockCode,
		ReprtCode: first.ReprtCode,
		ReprtName: ReportName(first.ReprtCode),
	}

	for _, r := range raw {
		var target *Buckets
		switch r.SjDiv {
		case DivisionBalanceSheet:
			target = &ys.BalanceSheet
		case DivisionIncomeStatement:
			target = &ys.IncomeStatement
		default:
			continue
		}

		line := normalizeLine(r)
		switch r.FsDiv {
		case DivConsolidated:
			target.CFS = append(target.CFS, line)
		case DivSeparate:
			target.OFS = append(target.OFS, line)
		}
	}

	return ys
}

func normalizeLine(r RawLine) Line {
	return Line{
		AccountNm:       r.AccountNm,
		ThstrmNm:        r.ThstrmNm,
		ThstrmDt:        r.ThstrmDt,
		ThstrmAmount:    ParseAmount(r.ThstrmAmount),
		FrmtrmNm:        r.FrmtrmNm,
		FrmtrmDt:        r.FrmtrmDt,
		FrmtrmAmount:    ParseAmount(r.FrmtrmAmount),
		BfefrmtrmNm:     r.BfefrmtrmNm,
		BfefrmtrmDt:     r.BfefrmtrmDt,
		BfefrmtrmAmount: ParseAmount(r.BfefrmtrmAmount),
		Ord:             r.Ord,
		Currency:        r.Currency,
	}
}
