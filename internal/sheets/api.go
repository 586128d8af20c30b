package sheets

import (
	"context"
)

// SheetsAPI is the slice of the Google Sheets API the exporter needs.
//
// Cell values are [][]interface{} because that is what
// google.golang.org/api/sheets/v4 uses. Wrap read values with NewCell and
// keep interface{} at this boundary.
type SheetsAPI interface {
	ReadSheet(ctx context.Context, spreadsheetID, range_ string) ([][]interface{}, error)
	UpdateRange(ctx context.Context, spreadsheetID, range_ string, values [][]interface{}) error
	AppendRows(ctx context.Context, spreadsheetID, range_ string, rows [][]interface{}) error
	CreateSheet(ctx context.Context, spreadsheetID, sheetName string) error
	SheetExists(ctx context.Context, spreadsheetID, sheetName string) (bool, error)
	EnsureSheetCapacity(ctx context.Context, spreadsheetID, sheetName string, requiredRows, requiredCols int) error
}
