package dataset

import (
	"bytes"

	"go.uber.org/zap"

	"github.com/sells-group/htm-dashboard/internal/fetcher"
	"github.com/sells-group/htm-dashboard/internal/model"
)

var zipMagic = []byte("PK\x03\x04")

// ReadUpload parses an uploaded file as CSV, falling back to the first sheet
// of an XLSX workbook. It returns nil when neither format parses.
func ReadUpload(name string, data []byte) *model.Table {
	if len(data) == 0 {
		return nil
	}
	// Workbooks are zip archives; as Latin-1 text they would parse as CSV.
	if !bytes.HasPrefix(data, zipMagic) {
		if t, err := ParseTable(name, data); err == nil && len(t.Columns) > 0 {
			return t
		}
	}

	rows, err := fetcher.ReadXLSXBytes(data, fetcher.XLSXOptions{})
	if err != nil {
		zap.L().Debug("upload is neither csv nor xlsx", zap.String("name", name), zap.Error(err))
		return nil
	}
	if len(rows) == 0 {
		return &model.Table{Name: name}
	}
	return newTable(name, rows[0], rows[1:])
}
