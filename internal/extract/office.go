package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"
	"unicode"
	"unicode/utf16"
)

// docxText walks word/document.xml and keeps the w:t runs, one line per paragraph.
func docxText(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}
	var body *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			body = f
			break
		}
	}
	if body == nil {
		return "", errors.New("docx: word/document.xml not found")
	}
	rc, err := body.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	var (
		sb     strings.Builder
		inText bool
	)
	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				sb.WriteByte('\t')
			case "br":
				sb.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return sb.String(), nil
}

// docText recovers text from legacy Word files by scanning for UTF-16LE runs
// of printable characters. Formatting and tables are lost.
func docText(content []byte) (string, error) {
	const minRun = 4
	var (
		sb  strings.Builder
		run []uint16
	)
	flush := func() {
		if len(run) >= minRun {
			sb.WriteString(string(utf16.Decode(run)))
			sb.WriteByte('\n')
		}
		run = run[:0]
	}
	for i := 0; i+1 < len(content); i += 2 {
		u := uint16(content[i]) | uint16(content[i+1])<<8
		r := rune(u)
		if r == '\r' || r == '\n' {
			flush()
			continue
		}
		if u < 0xD800 && (unicode.IsPrint(r) || r == '\t') {
			run = append(run, u)
			continue
		}
		flush()
	}
	flush()
	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return "", errors.New("doc: no readable text found")
	}
	return text, nil
}
