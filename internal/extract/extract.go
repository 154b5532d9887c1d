package extract

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"

	"tutortron-rag/internal/models"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Text extracts plain text from a document file. Pages (or sheets, slides,
// sections) are whitespace-normalized and concatenated with blank-line
// separators; a page yielding no text is skipped, not treated as an error.
// Returns ErrNoTextExtracted when nothing usable remains.
func Text(path string) (string, error) {
	var pages []string
	var err error

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pdf":
		pages, err = pdfPages(path)
	case ".docx":
		pages, err = docxParagraphs(path)
	case ".pptx":
		pages, err = pptxSlides(path)
	case ".xlsx":
		pages, err = xlsxSheets(path)
	case ".ods":
		pages, err = odsSheets(path)
	case ".md", ".markdown":
		pages, err = markdownBlocks(path)
	case ".txt":
		pages, err = textFile(path)
	default:
		return "", fmt.Errorf("unsupported file format: %s", ext)
	}
	if err != nil {
		return "", err
	}

	var kept []string
	for _, page := range pages {
		page = strings.TrimSpace(whitespaceRe.ReplaceAllString(page, " "))
		if page == "" {
			continue
		}
		kept = append(kept, page)
	}
	if len(kept) == 0 {
		return "", models.ErrNoTextExtracted
	}
	return strings.Join(kept, "\n\n"), nil
}

func pdfPages(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, err
	}

	var pages []string
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			log.Warn().Err(err).Int("page", i).Str("file", path).Msg("Skipping unreadable page")
			continue
		}
		pages = append(pages, pageText)
	}
	return pages, nil
}

var docxRunRe = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)

func docxParagraphs(path string) ([]string, error) {
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	content := r.Editable().GetContent()
	var paragraphs []string
	for _, block := range strings.Split(content, "</w:p>") {
		var text strings.Builder
		for _, m := range docxRunRe.FindAllStringSubmatch(block, -1) {
			text.WriteString(m[1])
			text.WriteString(" ")
		}
		paragraphs = append(paragraphs, text.String())
	}
	return paragraphs, nil
}

func pptxSlides(path string) ([]string, error) {
	f, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var slides []string
	for _, file := range f.File {
		if !strings.HasPrefix(file.Name, "ppt/slides/slide") {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}
		slides = append(slides, xmlTagText(string(data), "<a:t>", "</a:t>"))
	}
	return slides, nil
}

func xlsxSheets(path string) ([]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, err
	}

	var sheets []string
	for _, sheet := range f.Sheets {
		var text strings.Builder
		text.WriteString(fmt.Sprintf("Sheet: %s\n", sheet.Name))
		for _, row := range sheet.Rows {
			for _, cell := range row.Cells {
				text.WriteString(cell.String() + "\t")
			}
			text.WriteString("\n")
		}
		sheets = append(sheets, text.String())
	}
	return sheets, nil
}

func odsSheets(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var sheets []string
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		var text strings.Builder
		text.WriteString(fmt.Sprintf("Sheet: %s\n", sheetName))
		for _, row := range rows {
			for _, cell := range row {
				text.WriteString(cell + "\t")
			}
			text.WriteString("\n")
		}
		sheets = append(sheets, text.String())
	}
	return sheets, nil
}

func textFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	// keep paragraph boundaries for the chunker
	return strings.Split(string(data), "\n\n"), nil
}

func xmlTagText(xmlContent, open, close string) string {
	var text strings.Builder
	parts := strings.Split(xmlContent, open)
	for i, part := range parts {
		if i == 0 {
			continue
		}
		endIdx := strings.Index(part, close)
		if endIdx >= 0 {
			text.WriteString(part[:endIdx] + " ")
		}
	}
	return text.String()
}
