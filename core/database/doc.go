// Package database handles database connections and schema inspection.
//
// It provides a wrapper around GORM to configure MySQL or SQLite connections
// based on the application's configuration. The SQL index backend
// (core/indexstore) runs on top of the returned *gorm.DB.
//
// # Connect
//
// Connect opens the configured dialect, applies pool settings and pings the
// server before returning. SQLite ":memory:" databases are pinned to a single
// connection so every query sees the same database.
//
// # Schema Inspection
//
// GetTableColumns lists the columns of a table. The integrity feature uses it
// to verify that the index tables carry the expected columns.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//
//	columns, err := database.GetTableColumns(db, "media_entries")
package database
