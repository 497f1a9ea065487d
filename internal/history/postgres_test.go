package history

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qtc-mcp-server/internal/domain"
)

var recordColumns = []string{
	"id", "formula", "criterion", "qt", "interval_rate", "type", "units", "sex", "age",
	"qtc", "non_finite", "severity", "is_abnormal", "matched_rules", "request_id", "created_at",
}

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectPing()
	store, err := NewPostgresStore(db)
	require.NoError(t, err)
	return store, mock
}

func TestNewPostgresStore_NilDB(t *testing.T) {
	_, err := NewPostgresStore(nil)
	assert.Error(t, err)
}

func TestNewPostgresStore_PingFails(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	_, err = NewPostgresStore(db)
	assert.Error(t, err)
}

func TestPostgresStore_EnsureSchema(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS evaluations")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Save(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	record := sampleRecord("eval-1", created)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO evaluations")).
		WithArgs("eval-1", "qtcBzt", "aha2009", 400.0, 800.0, "interval", "msec", "male",
			sqlmock.AnyArg(), sqlmock.AnyArg(), "", "normal", false, "[]", "req-1", created).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

	require.NoError(t, store.Save(context.Background(), record))
	assert.Equal(t, created, record.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO evaluations")).
		WillReturnError(errors.New("disk full"))

	err := store.Save(context.Background(), sampleRecord("eval-1", time.Now().UTC()))
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM evaluations WHERE id = $1")).
		WithArgs("eval-1").
		WillReturnRows(sqlmock.NewRows(recordColumns).AddRow(
			"eval-1", "qtcFrd", "esc2005", 0.4, 0.8, "interval", "sec", "female", nil,
			0.43, "", "normal", false, `["QTc > 0.47 sec [female] -> abnormal"]`, "", created,
		))

	got, err := store.Get(context.Background(), "eval-1")
	require.NoError(t, err)
	assert.Equal(t, "qtcFrd", got.Formula)
	assert.Nil(t, got.Age)
	require.NotNil(t, got.QTc)
	assert.Equal(t, 0.43, *got.QTc)
	assert.Len(t, got.MatchedRules, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM evaluations WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPostgresStore_List(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC, id DESC")).
		WithArgs(10, 0).
		WillReturnRows(sqlmock.NewRows(recordColumns).
			AddRow("b", "qtcBzt", "aha2009", 400.0, 800.0, "interval", "msec", "male", 40,
				447.2, "", "normal", false, "[]", "", now).
			AddRow("a", "qtcBzt", "aha2009", 400.0, 0.0, "interval", "msec", "male", nil,
				nil, "+Inf", "undefined", false, "[]", "", now.Add(-time.Minute)))

	records, err := store.List(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "b", records[0].ID)
	require.NotNil(t, records[0].Age)
	assert.Equal(t, 40, *records[0].Age)
	assert.Nil(t, records[1].QTc)
	assert.Equal(t, "+Inf", records[1].NonFinite)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CountAndDelete(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM evaluations")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM evaluations WHERE id = $1")).
		WithArgs("eval-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)

	require.NoError(t, store.Delete(context.Background(), "eval-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteMissing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM evaluations WHERE id = $1")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
