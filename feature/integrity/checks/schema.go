package checks

import (
	"fmt"
	"sort"

	"media-index/core/database"
	"media-index/core/indexstore"

	"gorm.io/gorm"
)

// SchemaReport strictly types the result of a schema check.
type SchemaReport struct {
	Driver  string                 `json:"driver"`
	Matched bool                   `json:"matched"`
	Tables  map[string]TableReport `json:"tables"`
	Errors  []string               `json:"errors"`
}

type TableReport struct {
	MissingColumns []string `json:"missing_columns"`
	Status         string   `json:"status"` // "ok", "missing", "error"
}

// CheckSchema verifies that every index table carries the expected columns.
func CheckSchema(db *gorm.DB) (*SchemaReport, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	report := &SchemaReport{
		Driver:  db.Dialector.Name(),
		Matched: true,
		Tables:  make(map[string]TableReport),
		Errors:  []string{},
	}

	tables := make([]string, 0, len(indexstore.ExpectedColumns))
	for table := range indexstore.ExpectedColumns {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	for _, table := range tables {
		tblReport := TableReport{MissingColumns: []string{}, Status: "ok"}

		actualCols, err := database.GetTableColumns(db, table)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("Failed to inspect table %s: %v", table, err))
			report.Matched = false
			tblReport.Status = "error"
			report.Tables[table] = tblReport
			continue
		}
		if len(actualCols) == 0 {
			tblReport.Status = "missing"
			report.Matched = false
			report.Tables[table] = tblReport
			continue
		}

		actual := make(map[string]struct{}, len(actualCols))
		for _, col := range actualCols {
			actual[col.Field] = struct{}{}
		}
		for _, col := range indexstore.ExpectedColumns[table] {
			if _, ok := actual[col]; !ok {
				tblReport.MissingColumns = append(tblReport.MissingColumns, col)
				tblReport.Status = "error"
				report.Matched = false
			}
		}
		report.Tables[table] = tblReport
	}

	return report, nil
}
