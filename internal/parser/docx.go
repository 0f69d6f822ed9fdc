package parser

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"
)

const documentPart = "word/document.xml"

// extractDocx reads the main WordprocessingML part and emits one line per
// paragraph. Tabs and breaks inside a paragraph become whitespace.
func extractDocx(data []byte) (string, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var part *zip.File
	for _, f := range archive.File {
		if f.Name == documentPart {
			part = f
			break
		}
	}
	if part == nil {
		return "", errors.New("missing " + documentPart)
	}

	rc, err := part.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	return paragraphs(rc)
}

func paragraphs(r io.Reader) (string, error) {
	var (
		out    strings.Builder
		inText bool
	)

	decoder := xml.NewDecoder(r)
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "t":
				inText = true
			case "tab":
				out.WriteByte('\t')
			case "br", "cr":
				out.WriteByte('\n')
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				out.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				out.Write(el)
			}
		}
	}

	return out.String(), nil
}
