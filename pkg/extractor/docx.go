package extractor

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	wordNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	documentPart  = "word/document.xml"
)

// ExtractDOCX joins the text of the body paragraphs with newlines. Empty
// paragraphs are kept as empty lines. Paragraphs nested in tables or text
// boxes are not body paragraphs and are skipped.
func ExtractDOCX(r io.ReaderAt, size int64) (string, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("open word document: %w", err)
	}

	var part *zip.File
	for _, f := range zr.File {
		if f.Name == documentPart {
			part = f
			break
		}
	}
	if part == nil {
		return "", errors.New("open word document: missing " + documentPart)
	}

	rc, err := part.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", documentPart, err)
	}
	defer rc.Close()

	paragraphs, err := bodyParagraphs(rc)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", documentPart, err)
	}
	return strings.Join(paragraphs, "\n"), nil
}

func bodyParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)

	var (
		paragraphs []string
		current    strings.Builder
		stack      []string
		inPara     bool
		nested     int
		inText     bool
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return paragraphs, nil
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			name := t.Name.Local
			if t.Name.Space != wordNamespace {
				name = ""
			}
			switch {
			case name == "p" && !inPara && isBody(stack):
				inPara = true
				current.Reset()
			case name == "p" && inPara:
				nested++
			case inPara && nested == 0:
				switch name {
				case "t":
					inText = true
				case "tab":
					current.WriteByte('\t')
				case "br", "cr":
					current.WriteByte('\n')
				}
			}
			stack = append(stack, name)

		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			if t.Name.Space != wordNamespace {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if nested > 0 {
					nested--
				} else if inPara {
					paragraphs = append(paragraphs, current.String())
					inPara = false
				}
			}

		case xml.CharData:
			if inText && nested == 0 {
				current.Write(t)
			}
		}
	}
}

func isBody(stack []string) bool {
	return len(stack) == 2 && stack[0] == "document" && stack[1] == "body"
}
