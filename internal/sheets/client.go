package sheets

import (
	"context"
	"fmt"

	"torn_war_bot/internal/config"

	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Client implements SheetsAPI with the Google Sheets API. Writes are
// retried per config.SheetWrite.
type Client struct {
	service *sheets.Service
	retry   config.RetryConfig
}

// NewClient creates a Google Sheets client with the provided credentials
func NewClient(ctx context.Context, credentialsFile string) (*Client, error) {
	service, err := sheets.NewService(ctx, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Client{
		service: service,
		retry:   config.DefaultResilienceConfig.SheetWrite,
	}, nil
}

// ReadSheet reads values from the specified range
func (c *Client) ReadSheet(ctx context.Context, spreadsheetID, range_ string) ([][]interface{}, error) {
	resp, err := c.service.Spreadsheets.Values.Get(spreadsheetID, range_).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	return resp.Values, nil
}

// UpdateRange overwrites the specified range
func (c *Client) UpdateRange(ctx context.Context, spreadsheetID, range_ string, values [][]interface{}) error {
	return c.retry.Do(ctx, "update "+range_, func(ctx context.Context) error {
		_, err := c.service.Spreadsheets.Values.Update(spreadsheetID, range_, &sheets.ValueRange{Values: values}).
			ValueInputOption("USER_ENTERED").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("failed to update range: %w", err)
		}
		return nil
	})
}

// AppendRows appends rows after the last row of the range's table
func (c *Client) AppendRows(ctx context.Context, spreadsheetID, range_ string, rows [][]interface{}) error {
	return c.retry.Do(ctx, "append "+range_, func(ctx context.Context) error {
		_, err := c.service.Spreadsheets.Values.Append(spreadsheetID, range_, &sheets.ValueRange{Values: rows}).
			ValueInputOption("USER_ENTERED").
			InsertDataOption("INSERT_ROWS").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("failed to append rows: %w", err)
		}
		return nil
	})
}

// CreateSheet adds a tab to the spreadsheet
func (c *Client) CreateSheet(ctx context.Context, spreadsheetID, sheetName string) error {
	return c.batchUpdate(ctx, spreadsheetID, &sheets.Request{
		AddSheet: &sheets.AddSheetRequest{
			Properties: &sheets.SheetProperties{Title: sheetName},
		},
	})
}

// SheetExists checks whether a tab with the given name exists
func (c *Client) SheetExists(ctx context.Context, spreadsheetID, sheetName string) (bool, error) {
	sheet, err := c.findSheet(ctx, spreadsheetID, sheetName)
	if err != nil {
		return false, err
	}
	return sheet != nil, nil
}

// EnsureSheetCapacity grows a tab to at least the required size, with room
// to spare
func (c *Client) EnsureSheetCapacity(ctx context.Context, spreadsheetID, sheetName string, requiredRows, requiredCols int) error {
	sheet, err := c.findSheet(ctx, spreadsheetID, sheetName)
	if err != nil {
		return err
	}
	if sheet == nil {
		return fmt.Errorf("sheet %s not found", sheetName)
	}

	grid := sheet.Properties.GridProperties
	rows, cols := int(grid.RowCount), int(grid.ColumnCount)
	if requiredRows <= rows && requiredCols <= cols {
		return nil
	}
	if requiredRows > rows {
		rows = requiredRows + 100
	}
	if requiredCols > cols {
		cols = requiredCols + 10
	}

	log.Debug().
		Str("sheet_name", sheetName).
		Int("new_rows", rows).
		Int("new_cols", cols).
		Msg("Expanding sheet capacity")

	return c.batchUpdate(ctx, spreadsheetID, &sheets.Request{
		UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
			Properties: &sheets.SheetProperties{
				SheetId: sheet.Properties.SheetId,
				GridProperties: &sheets.GridProperties{
					RowCount:    int64(rows),
					ColumnCount: int64(cols),
				},
			},
			Fields: "gridProperties.rowCount,gridProperties.columnCount",
		},
	})
}

func (c *Client) findSheet(ctx context.Context, spreadsheetID, sheetName string) (*sheets.Sheet, error) {
	spreadsheet, err := c.service.Spreadsheets.Get(spreadsheetID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get spreadsheet: %w", err)
	}
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties.Title == sheetName {
			return sheet, nil
		}
	}
	return nil, nil
}

func (c *Client) batchUpdate(ctx context.Context, spreadsheetID string, req *sheets.Request) error {
	return c.retry.Do(ctx, "batch update", func(ctx context.Context) error {
		_, err := c.service.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{req},
		}).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("spreadsheet batch update failed: %w", err)
		}
		return nil
	})
}
