package sheets

import (
	"fmt"
	"strings"
)

// Cell provides typed access to a value read from Google Sheets
type Cell struct {
	raw interface{}
}

// NewCell wraps a raw value from the Sheets API
func NewCell(raw interface{}) Cell {
	return Cell{raw: raw}
}

// String returns the cell value as a trimmed string
func (c Cell) String() string {
	if c.raw == nil {
		return ""
	}
	if s, ok := c.raw.(string); ok {
		return strings.TrimSpace(s)
	}
	return fmt.Sprintf("%v", c.raw)
}

// IsEmpty returns true if the cell contains nil or an empty string
func (c Cell) IsEmpty() bool {
	return c.String() == ""
}
