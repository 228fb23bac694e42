package handlers

import (
	"html/template"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ekaya-inc/ekaya-csvloader/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-csvloader/pkg/models"
)

// TableCSSClass is set on every rendered HTML table.
const TableCSSClass = "data-table"

// renderTableHTML renders a header and rows as an HTML table. Cell text is
// HTML-escaped by go-pretty, so the result is safe to embed unescaped.
func renderTableHTML(header []string, rows [][]string) template.HTML {
	if len(header) == 0 {
		return ""
	}

	tw := table.NewWriter()
	style := tw.Style()
	style.Format.Header = text.FormatDefault
	style.HTML = table.DefaultHTMLOptions
	style.HTML.CSSClass = TableCSSClass
	style.HTML.EscapeText = true

	headerRow := make(table.Row, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	tw.AppendHeader(headerRow)

	for _, r := range rows {
		row := make(table.Row, len(r))
		for i, v := range r {
			row[i] = v
		}
		tw.AppendRow(row)
	}

	// Cells are escaped by go-pretty.
	return template.HTML(tw.RenderHTML())
}

func renderPreviewHTML(p *models.Preview) template.HTML {
	if p == nil {
		return ""
	}
	return renderTableHTML(p.Columns, p.Rows)
}

func renderStructureHTML(cols []datasource.ColumnMetadata) template.HTML {
	rows := make([][]string, len(cols))
	for i, c := range cols {
		rows[i] = []string{c.ColumnName, c.DataType}
	}
	return renderTableHTML([]string{"column_name", "data_type"}, rows)
}
