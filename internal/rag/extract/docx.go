package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

func docxText(data []byte) (string, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	for _, f := range r.File {
		if !strings.EqualFold(f.Name, "word/document.xml") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("open word/document.xml: %w", err)
		}
		defer rc.Close()
		return docxXMLText(rc), nil
	}
	return "", fmt.Errorf("docx has no word/document.xml")
}

// docxXMLText collects w:t runs, emitting a newline per paragraph and a tab per table cell.
func docxXMLText(r io.Reader) string {
	dec := xml.NewDecoder(r)
	var buf strings.Builder
	atLineStart := true
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				var text string
				if err := dec.DecodeElement(&text, &t); err == nil {
					buf.WriteString(text)
					atLineStart = false
				}
			case "tab":
				buf.WriteByte('\t')
				atLineStart = false
			case "br", "cr":
				buf.WriteByte('\n')
				atLineStart = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p", "tr":
				if !atLineStart {
					buf.WriteByte('\n')
					atLineStart = true
				}
			case "tc":
				if !atLineStart {
					buf.WriteByte('\t')
				}
			}
		}
	}
	return buf.String()
}
