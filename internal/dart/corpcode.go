package dart

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// CorpCode is one <list> entry of corpCode.xml.
type CorpCode struct {
	CorpCode    string `xml:"corp_code"`
	CorpName    string `xml:"corp_name"`
	CorpEngName string `xml:"corp_eng_name"`
	StockCode   string `xml:"stock_code"`
	ModifyDate  string `xml:"modify_date"`
}

// Listed reports whether the company has a stock code.
func (c CorpCode) Listed() bool {
	return c.StockCode != ""
}

// StatusError is an OpenDART error envelope returned instead of data.
type StatusError struct {
	Status  string
	Message string
}

func (e *StatusError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = StatusDescription(e.Status)
	}
	return fmt.Sprintf("opendart status %s: %s", e.Status, msg)
}

// KeyProblem reports whether the status means the API key is unusable.
func (e *StatusError) KeyProblem() bool {
	return IsKeyProblem(e.Status)
}

func isZIP(b []byte) bool {
	return bytes.HasPrefix(b, []byte("PK\x03\x04"))
}

func parseErrorResult(body []byte) error {
	var result struct {
		Status  string `xml:"status" json:"status"`
		Message string `xml:"message" json:"message"`
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		// some key errors come back as JSON even on the XML endpoint
		if json.Unmarshal(trimmed, &result) == nil && result.Status != "" {
			return &StatusError{Status: result.Status, Message: result.Message}
		}
	} else if xml.Unmarshal(trimmed, &result) == nil && result.Status != "" {
		return &StatusError{Status: result.Status, Message: result.Message}
	}
	return fmt.Errorf("unexpected corpCode response (%d bytes)", len(body))
}

// ParseCorpCodeZip extracts and parses CORPCODE.xml from the downloaded archive.
func ParseCorpCodeZip(archive []byte) ([]CorpCode, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("failed to open corpCode archive: %w", err)
	}

	for _, f := range zr.File {
		if !strings.HasSuffix(strings.ToLower(f.Name), ".xml") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", f.Name, err)
		}
		codes, err := ParseCorpCodeXML(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", f.Name, err)
		}
		return codes, nil
	}
	return nil, errors.New("corpCode archive contains no XML file")
}

// ParseCorpCodeXML streams <list> entries from r, trimming every field.
// Entries without a corp_code are skipped.
func ParseCorpCodeXML(r io.Reader) ([]CorpCode, error) {
	dec := xml.NewDecoder(r)
	var codes []CorpCode
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "list" {
			continue
		}
		var c CorpCode
		if err := dec.DecodeElement(&c, &start); err != nil {
			return nil, err
		}
		c.CorpCode = strings.TrimSpace(c.CorpCode)
		c.CorpName = strings.TrimSpace(c.CorpName)
		c.CorpEngName = strings.TrimSpace(c.CorpEngName)
		c.StockCode = strings.TrimSpace(c.StockCode)
		c.ModifyDate = strings.TrimSpace(c.ModifyDate)
		if c.CorpCode == "" {
			continue
		}
		codes = append(codes, c)
	}
	return codes, nil
}
