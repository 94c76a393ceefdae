package checks

import (
	"testing"

	"media-index/core/database"
	"media-index/core/indexstore"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func TestCheckSchema_Migrated(t *testing.T) {
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, indexstore.NewSQLStore(db).AutoMigrate())

	report, err := CheckSchema(db)
	require.NoError(t, err)
	assert.True(t, report.Matched, "%+v", report)
	assert.Equal(t, "sqlite", report.Driver)
	assert.Len(t, report.Tables, len(indexstore.ExpectedColumns))
}

func TestCheckSchema_MissingTables(t *testing.T) {
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.Exec("CREATE TABLE index_locks (site TEXT PRIMARY KEY, timestamp INTEGER)").Error)

	report, err := CheckSchema(db)
	require.NoError(t, err)
	assert.False(t, report.Matched)
	assert.Equal(t, "missing", report.Tables[indexstore.MediaTable].Status)
	assert.Equal(t, []string{"locked", "owner"}, report.Tables[indexstore.LockTable].MissingColumns)
}

func TestCheckSchema_InspectError(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{})
	require.NoError(t, err)

	mock.MatchExpectationsInOrder(false)
	for range indexstore.ExpectedColumns {
		mock.ExpectQuery("SHOW COLUMNS FROM").WillReturnError(assert.AnError)
	}

	report, err := CheckSchema(db)
	require.NoError(t, err)
	assert.False(t, report.Matched)
	assert.Len(t, report.Errors, len(indexstore.ExpectedColumns))
}

func TestCheckSchema_NilDB(t *testing.T) {
	_, err := CheckSchema(nil)
	assert.Error(t, err)
}
