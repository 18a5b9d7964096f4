// Package corpus holds the registered-company list used for name/ticker
// search, its SQLite store, and the swap-on-reload snapshot.
package corpus

import (
	"sort"
	"strings"

	"github.com/bobmcallan/dart-portal/internal/faults"
)

const (
	DefaultSearchLimit = 50
	MaxSearchLimit     = 100
)

// Relevance tiers, most relevant first.
const (
	tierExactName = iota
	tierNamePrefix
	tierExactTicker
	tierTickerPrefix
	tierContains
)

// Record is one registered company.
type Record struct {
	CorpCode    string
	CorpName    string
	CorpEngName string
	StockCode   string
	ModifyDate  string
}

// Listed reports whether the company trades on an exchange.
func (r Record) Listed() bool {
	return r.StockCode != ""
}

// Result is a search hit.
type Result struct {
	CorpCode  string `json:"corp_code"`
	CorpName  string `json:"corp_name"`
	StockCode string `json:"stock_code"`
	IsListed  bool   `json:"is_listed"`
}

type indexedRecord struct {
	Record
	nameLower  string
	stockLower string
}

func index(records []Record) []indexedRecord {
	out := make([]indexedRecord, len(records))
	for i, r := range records {
		out[i] = indexedRecord{
			Record:     r,
			nameLower:  strings.ToLower(r.CorpName),
			stockLower: strings.ToLower(r.StockCode),
		}
	}
	return out
}

// ClampLimit applies the default and maximum result counts.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		return MaxSearchLimit
	}
	return limit
}

// Search ranks records matching keyword by name or ticker.
func Search(records []Record, keyword string, limit int) ([]Result, error) {
	return rank(index(records), keyword, limit)
}

func rank(entries []indexedRecord, keyword string, limit int) ([]Result, error) {
	kw := strings.ToLower(strings.TrimSpace(keyword))
	if kw == "" {
		return nil, &faults.Error{
			Kind:    faults.KindValidation,
			SubKind: "empty_query",
			Message: "검색어를 입력해주세요.",
			Hint:    "q 파라미터에 회사명 또는 종목코드를 입력하세요.",
		}
	}
	limit = ClampLimit(limit)

	type hit struct {
		rec  *indexedRecord
		tier int
	}
	var hits []hit
	for i := range entries {
		e := &entries[i]
		nameMatch := strings.Contains(e.nameLower, kw)
		stockMatch := e.stockLower != "" && strings.Contains(e.stockLower, kw)
		if !nameMatch && !stockMatch {
			continue
		}
		hits = append(hits, hit{rec: e, tier: tierOf(e, kw)})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.tier != b.tier {
			return a.tier < b.tier
		}
		if a.rec.CorpName != b.rec.CorpName {
			return a.rec.CorpName < b.rec.CorpName
		}
		return a.rec.CorpCode < b.rec.CorpCode
	})

	results := make([]Result, 0, min(limit, len(hits)))
	seen := make(map[string]bool, len(hits))
	for _, h := range hits {
		if len(results) == limit {
			break
		}
		if seen[h.rec.CorpCode] {
			continue
		}
		seen[h.rec.CorpCode] = true
		results = append(results, Result{
			CorpCode:  h.rec.CorpCode,
			CorpName:  h.rec.CorpName,
			StockCode: h.rec.StockCode,
			IsListed:  h.rec.Listed(),
		})
	}
	return results, nil
}

func tierOf(e *indexedRecord, kw string) int {
	switch {
	case e.nameLower == kw:
		return tierExactName
	case strings.HasPrefix(e.nameLower, kw):
		return tierNamePrefix
	case e.stockLower == kw:
		return tierExactTicker
	case e.stockLower != "" && strings.HasPrefix(e.stockLower, kw):
		return tierTickerPrefix
	default:
		return tierContains
	}
}
