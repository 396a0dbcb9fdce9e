package agent

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/fedask/fedask/internal/query"
)

const (
	NoResultsMessage = "No results found."
	nullText         = "None"
	valueSeparator   = ", "
)

// Format renders a result set as one string:
//
//   - no rows: NoResultsMessage
//   - one column, one row: the cell
//   - one column: cells joined by ", "
//   - otherwise: one line per row, cells joined by ", "
func Format(rs query.ResultSet) string {
	if len(rs.Rows) == 0 {
		return NoResultsMessage
	}
	if len(rs.Columns) == 1 && len(rs.Rows) == 1 {
		return cellText(firstCell(rs.Rows[0]))
	}
	if len(rs.Columns) == 1 {
		values := make([]string, 0, len(rs.Rows))
		for _, row := range rs.Rows {
			values = append(values, cellText(firstCell(row)))
		}
		return strings.Join(values, valueSeparator)
	}

	lines := make([]string, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		cells := make([]string, 0, len(row))
		for _, value := range row {
			cells = append(cells, cellText(value))
		}
		lines = append(lines, strings.Join(cells, valueSeparator))
	}
	return strings.Join(lines, "\n")
}

func firstCell(row []any) any {
	if len(row) == 0 {
		return nil
	}
	return row[0]
}

func cellText(value any) string {
	switch v := value.(type) {
	case nil:
		return nullText
	case string:
		return v
	case []byte:
		return string(v)
	case int:
		return strconv.Itoa(v)
	case int8:
		return strconv.FormatInt(int64(v), 10)
	case int16:
		return strconv.FormatInt(int64(v), 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint8:
		return strconv.FormatUint(uint64(v), 10)
	case uint16:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float32:
		return formatFloat(float64(v), 32)
	case float64:
		return formatFloat(v, 64)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		if v.Hour() == 0 && v.Minute() == 0 && v.Second() == 0 && v.Nanosecond() == 0 {
			return v.Format(time.DateOnly)
		}
		return v.Format(time.DateTime)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// formatFloat keeps a fractional part on whole numbers, so AVG() over whole
// values reads 1.0 rather than 1.
func formatFloat(v float64, bitSize int) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	text := strconv.FormatFloat(v, 'f', -1, bitSize)
	if !strings.Contains(text, ".") {
		text += ".0"
	}
	return text
}
