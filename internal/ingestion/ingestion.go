package ingestion

import (
	"bytes"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"

	"resumatch/internal/errors"
)

// SupportedExtensions lists every document type ExtractText understands.
var SupportedExtensions = []string{".pdf", ".docx", ".txt", ".md", ".markdown", ".html", ".htm"}

var (
	magicPDF = []byte("%PDF")
	magicZip = []byte("PK\x03\x04")
)

// binarySignatures are leading bytes of formats that are never text.
var binarySignatures = [][]byte{
	magicPDF,
	magicZip,
	[]byte("\x89PNG"),
	[]byte("\xff\xd8\xff"),
	[]byte("GIF8"),
	[]byte("\x7fELF"),
	[]byte("\x1f\x8b"),
	[]byte("\xd0\xcf\x11\xe0"), // legacy .doc
}

const binarySampleSize = 8000

// Extension returns the lowercased extension of name.
func Extension(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// IsSupported reports whether name has an extension ExtractText handles.
func IsSupported(name string) bool {
	return slices.Contains(SupportedExtensions, Extension(name))
}

// ExtractText returns the plain text of a document. The extension picks
// the parser and the content must carry the matching signature.
func ExtractText(name string, data []byte) (string, error) {
	ext := Extension(name)

	var (
		text string
		err  error
	)
	switch ext {
	case ".pdf":
		if !bytes.HasPrefix(data, magicPDF) {
			return "", mismatch(name, "PDF")
		}
		text, err = extractPDF(data)
	case ".docx":
		if !bytes.HasPrefix(data, magicZip) {
			return "", mismatch(name, "DOCX")
		}
		text, err = extractDOCX(data)
	case ".html", ".htm":
		if IsBinary(data) {
			return "", mismatch(name, "HTML")
		}
		text, err = extractHTML(bytes.NewReader(data))
	case ".txt", ".md", ".markdown":
		if IsBinary(data) || !utf8.Valid(data) {
			return "", mismatch(name, "text")
		}
		text = string(data)
	default:
		return "", errors.NewValidationError(errors.ErrCodeUnsupportedFileType,
			fmt.Sprintf("unsupported file type %q, supported types: %s", ext, strings.Join(SupportedExtensions, ", ")), nil)
	}
	if err != nil {
		return "", errors.NewInputError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("failed to read %s", name), err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.NewInputError(errors.ErrCodeEmptyDocument,
			fmt.Sprintf("no text could be extracted from %s", name), nil)
	}
	return text, nil
}

func mismatch(name, kind string) error {
	return errors.NewValidationError(errors.ErrCodeInvalidFormat,
		fmt.Sprintf("file %s is not a valid %s document", name, kind), nil)
}

// IsBinary reports whether data looks like a binary file: a known binary
// signature, a NUL byte, or mostly non-printable content.
func IsBinary(data []byte) bool {
	for _, sig := range binarySignatures {
		if bytes.HasPrefix(data, sig) {
			return true
		}
	}

	sample := data[:min(len(data), binarySampleSize)]
	if bytes.IndexByte(sample, 0) >= 0 {
		return true
	}

	var total, control int
	for len(sample) > 0 {
		r, size := utf8.DecodeRune(sample)
		sample = sample[size:]
		total++
		if r == utf8.RuneError && size <= 1 {
			// a rune cut off at the sample boundary is not evidence
			if len(sample) > 0 {
				control++
			}
			continue
		}
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			control++
		}
	}
	return total > 0 && control*10 > total*3
}

func extractPDF(data []byte) (text string, err error) {
	// the parser panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to read pdf: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to read pdf page %d: %w", i, err)
		}
		b.WriteString(content)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// docxBreaks turn paragraph ends and tabs into whitespace before the
// markup is stripped.
var docxBreaks = strings.NewReplacer(
	"</w:p>", "</w:p>\n",
	"<w:br/>", "\n",
	"<w:tab/>", " ",
)

func extractDOCX(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse docx: %w", err)
	}
	defer func() { _ = doc.Close() }()

	body := docxBreaks.Replace(doc.Editable().GetContent())
	parsed, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to parse docx body: %w", err)
	}
	return parsed.Text(), nil
}

// HTML elements that never hold resume or posting content.
const htmlNoise = "script, style, noscript, nav, footer, header, iframe, svg"

func extractHTML(r *bytes.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}
	doc.Find(htmlNoise).Remove()

	// block elements end a sentence so phrases do not join across them
	doc.Find("p, li, h1, h2, h3, h4, h5, h6, td, th, div, br, tr").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})
	return doc.Find("body").Text(), nil
}
