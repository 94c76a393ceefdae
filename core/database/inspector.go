package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// mysqlNoSuchTable is ER_NO_SUCH_TABLE.
const mysqlNoSuchTable = 1146

// ColumnInfo describes one column of a live table. Field and Type are lower-cased.
type ColumnInfo struct {
	Field   string
	Type    string
	Null    string
	Key     string
	Default *string
	Extra   string
}

// sqliteColumn is one row of PRAGMA table_info.
type sqliteColumn struct {
	Cid        int
	Name       string
	Type       string
	Notnull    int
	DefaultVal *string `gorm:"column:dflt_value"`
	Pk         int
}

// GetTableColumns lists the columns of a table. A table that does not exist
// has no columns and is not an error.
func GetTableColumns(db *gorm.DB, tableName string) ([]ColumnInfo, error) {
	var (
		columns []ColumnInfo
		err     error
	)
	if db.Dialector.Name() == DriverSQLite {
		columns, err = sqliteColumns(db, tableName)
	} else {
		columns, err = mysqlColumns(db, tableName)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get columns for table %s: %w", tableName, err)
	}

	for i := range columns {
		columns[i].Field = strings.ToLower(columns[i].Field)
		columns[i].Type = strings.ToLower(columns[i].Type)
	}
	return columns, nil
}

func sqliteColumns(db *gorm.DB, tableName string) ([]ColumnInfo, error) {
	var rows []sqliteColumn
	if err := db.Raw(fmt.Sprintf("PRAGMA table_info('%s')", tableName)).Scan(&rows).Error; err != nil {
		return nil, err
	}
	columns := make([]ColumnInfo, 0, len(rows))
	for _, r := range rows {
		col := ColumnInfo{Field: r.Name, Type: r.Type, Default: r.DefaultVal, Null: "YES"}
		if r.Notnull != 0 {
			col.Null = "NO"
		}
		if r.Pk != 0 {
			col.Key = "PRI"
		}
		columns = append(columns, col)
	}
	return columns, nil
}

func mysqlColumns(db *gorm.DB, tableName string) ([]ColumnInfo, error) {
	var columns []ColumnInfo
	err := db.Raw(fmt.Sprintf("SHOW COLUMNS FROM `%s`", tableName)).Scan(&columns).Error
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlNoSuchTable {
		return nil, nil
	}
	return columns, err
}
