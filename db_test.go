// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlcraft_test

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/DATA-DOG/go-sqlmock"
	_ "github.com/mattn/go-sqlite3"
	. "gopkg.in/check.v1"

	"github.com/canonical/sqlcraft"
)

type DBSuite struct {
	sqldb *sql.DB
	db    *sqlcraft.DB
}

var _ = Suite(&DBSuite{})

func setupDB() (*sql.DB, error) {
	sqldb, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, err
	}
	// Each connection to :memory: is a separate database.
	sqldb.SetMaxOpenConns(1)
	return sqldb, nil
}

func (s *DBSuite) SetUpTest(c *C) {
	sqldb, err := setupDB()
	c.Assert(err, IsNil)
	s.sqldb = sqldb
	s.db = sqlcraft.NewDB(sqldb, sqlcraft.NewBuilder(sqlcraft.SQLite))

	_, err = s.db.CreateTable(context.Background(), "person", sqlcraft.Pairs{
		{Key: "id", Value: "INTEGER PRIMARY KEY"},
		{Key: "name", Value: "TEXT NOT NULL"},
		{Key: "team", Value: "TEXT"},
		{Key: "active", Value: "BOOLEAN"},
	})
	c.Assert(err, IsNil)
}

func (s *DBSuite) TearDownTest(c *C) {
	c.Assert(s.sqldb.Close(), IsNil)
}

type member struct {
	ID     int    `db:"id"`
	Name   string `db:"name"`
	Team   string `db:"team,omitempty"`
	Active bool   `db:"active"`
}

func (s *DBSuite) insertMembers(c *C) {
	res, err := s.db.InsertInto(context.Background(), "person",
		member{ID: 1, Name: "Fred", Team: "red", Active: true},
		member{ID: 2, Name: "Mary", Team: "blue", Active: false},
		member{ID: 3, Name: "Jim", Team: "red", Active: true},
	)
	c.Assert(err, IsNil)
	n, err := res.RowsAffected()
	c.Assert(err, IsNil)
	c.Assert(n, Equals, int64(3))
}

func scanStrings(c *C, rows *sql.Rows) []string {
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		c.Assert(rows.Scan(&v), IsNil)
		out = append(out, v)
	}
	c.Assert(rows.Err(), IsNil)
	return out
}

func (s *DBSuite) TestInsertAndSelect(c *C) {
	s.insertMembers(c)
	b := s.db.Builder()

	rows, err := s.db.Select(context.Background(), []any{"name"}, &sqlcraft.SelectOptions{
		From:  "person",
		Where: []any{sqlcraft.M{"active": true}},
		Order: b.By(b.Name("id").Desc()),
	})
	c.Assert(err, IsNil)
	c.Check(scanStrings(c, rows), DeepEquals, []string{"Jim", "Fred"})

	rows, err = s.db.Select(context.Background(), []any{"name"}, &sqlcraft.SelectOptions{
		From:   "person",
		Where:  []any{b.Name("team").Eq("red").Or(sqlcraft.M{"id": 2})},
		Order:  b.By("id"),
		Limit:  2,
		Offset: 1,
	})
	c.Assert(err, IsNil)
	c.Check(scanStrings(c, rows), DeepEquals, []string{"Mary", "Jim"})

	rows, err = s.db.Select(context.Background(), []any{"team"}, &sqlcraft.SelectOptions{
		From:  "person",
		Group: b.By("team").Having(b.Count().Gt(1)),
	})
	c.Assert(err, IsNil)
	c.Check(scanStrings(c, rows), DeepEquals, []string{"red"})
}

func (s *DBSuite) TestUpdate(c *C) {
	s.insertMembers(c)

	res, err := s.db.Update(context.Background(), "person", &sqlcraft.UpdateOptions{
		Set:   sqlcraft.M{"name": "Frederick", "team": nil},
		Where: []any{sqlcraft.M{"id": 1}},
	})
	c.Assert(err, IsNil)
	n, err := res.RowsAffected()
	c.Assert(err, IsNil)
	c.Check(n, Equals, int64(1))

	rows, err := s.db.Select(context.Background(), []any{"name"}, &sqlcraft.SelectOptions{
		From:  "person",
		Where: []any{sqlcraft.M{"team": nil}},
	})
	c.Assert(err, IsNil)
	c.Check(scanStrings(c, rows), DeepEquals, []string{"Frederick"})
}

func (s *DBSuite) TestDeleteFrom(c *C) {
	s.insertMembers(c)

	res, err := s.db.DeleteFrom(context.Background(), "person", &sqlcraft.DeleteOptions{
		Where: []any{sqlcraft.M{"team": []string{"blue", "green"}}},
	})
	c.Assert(err, IsNil)
	n, err := res.RowsAffected()
	c.Assert(err, IsNil)
	c.Check(n, Equals, int64(1))

	rows, err := s.db.Select(context.Background(), []any{s.db.Builder().Count()}, &sqlcraft.SelectOptions{From: "person"})
	c.Assert(err, IsNil)
	c.Check(scanStrings(c, rows), DeepEquals, []string{"2"})
}

func (s *DBSuite) TestDropTable(c *C) {
	_, err := s.db.DropTable(context.Background(), "person")
	c.Assert(err, IsNil)

	_, err = s.db.Select(context.Background(), nil, &sqlcraft.SelectOptions{From: "person"})
	c.Assert(err, ErrorMatches, "cannot select: no such table: person")
}

func (s *DBSuite) TestExecAndQuery(c *C) {
	b := s.db.Builder()
	_, err := s.db.Exec(context.Background(), b.Raw(`INSERT INTO person (id, name) VALUES (9, 'raw')`))
	c.Assert(err, IsNil)

	rows, err := s.db.Query(context.Background(), b.Select([]any{"name"}, &sqlcraft.SelectOptions{From: "person"}))
	c.Assert(err, IsNil)
	c.Check(scanStrings(c, rows), DeepEquals, []string{"raw"})
}

func (s *DBSuite) TestTransaction(c *C) {
	tx, err := s.db.Begin(context.Background(), nil)
	c.Assert(err, IsNil)
	_, err = tx.InsertInto(context.Background(), "person", sqlcraft.M{"id": 1, "name": "Fred"})
	c.Assert(err, IsNil)
	c.Assert(tx.Rollback(), IsNil)
	c.Check(tx.Commit(), Equals, sqlcraft.ErrTXDone)

	rows, err := s.db.Select(context.Background(), []any{"name"}, &sqlcraft.SelectOptions{From: "person"})
	c.Assert(err, IsNil)
	c.Check(scanStrings(c, rows), HasLen, 0)

	tx, err = s.db.Begin(context.Background(), &sqlcraft.TXOptions{})
	c.Assert(err, IsNil)
	_, err = tx.InsertInto(context.Background(), "person", sqlcraft.M{"id": 2, "name": "Mary"})
	c.Assert(err, IsNil)
	c.Assert(tx.Commit(), IsNil)

	_, err = tx.Begin(context.Background(), nil)
	c.Check(err, ErrorMatches, `cannot begin transaction: \*sql.Tx cannot start transactions`)

	rows, err = s.db.Select(context.Background(), []any{"name"}, &sqlcraft.SelectOptions{From: "person"})
	c.Assert(err, IsNil)
	c.Check(scanStrings(c, rows), DeepEquals, []string{"Mary"})
}

type MockSuite struct{}

var _ = Suite(&MockSuite{})

func newMock(c *C, opts ...sqlcraft.Option) (*sqlcraft.DB, sqlmock.Sqlmock) {
	sqldb, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	c.Assert(err, IsNil)
	return sqlcraft.NewDB(sqldb, sqlcraft.NewBuilder(sqlcraft.PostgreSQL), opts...), mock
}

func (s *MockSuite) TestTruncate(c *C) {
	db, mock := newMock(c)
	mock.ExpectExec(`TRUNCATE "foo"`).WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := db.Truncate(context.Background(), "foo")
	c.Assert(err, IsNil)
	c.Assert(mock.ExpectationsWereMet(), IsNil)
}

func (s *MockSuite) TestExecutorErrorIsWrapped(c *C) {
	db, mock := newMock(c)
	boom := errors.New("boom")
	mock.ExpectExec(`TRUNCATE "foo"`).WillReturnError(boom)

	_, err := db.Truncate(context.Background(), "foo")
	c.Check(err, ErrorMatches, "cannot truncate: boom")
	c.Check(errors.Is(err, boom), Equals, true)
	c.Assert(mock.ExpectationsWereMet(), IsNil)
}

func (s *MockSuite) TestRenderErrorNeverReachesExecutor(c *C) {
	db, mock := newMock(c)

	_, err := db.Update(context.Background(), "foo", &sqlcraft.UpdateOptions{})
	c.Check(errors.Is(err, sqlcraft.ErrMissingAssignment), Equals, true)
	c.Check(err, ErrorMatches, "cannot update: missing assignment")

	_, err = db.InsertInto(context.Background(), "foo")
	c.Check(errors.Is(err, sqlcraft.ErrEmptyInsert), Equals, true)

	_, err = db.Select(context.Background(), nil, &sqlcraft.SelectOptions{From: "foo", Where: []any{1.5}})
	c.Check(errors.Is(err, sqlcraft.ErrUnsupportedClauseTerm), Equals, true)

	c.Assert(mock.ExpectationsWereMet(), IsNil)
}

func (s *MockSuite) TestStatementsReachExecutorVerbatim(c *C) {
	db, mock := newMock(c)
	mock.ExpectExec(`CREATE TABLE "foo" ("id" INT)`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO "foo" ("id") VALUES (1), (2)`).WillReturnResult(sqlmock.NewResult(2, 2))
	mock.ExpectQuery(`SELECT "id" FROM "foo" WHERE "id" IN (1, 2)`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2))
	mock.ExpectExec(`UPDATE "foo" SET "id" = 3 WHERE "id" = 2`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM "foo" WHERE "id" = 3`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DROP TABLE "foo"`).WillReturnResult(sqlmock.NewResult(0, 0))

	ctx := context.Background()
	_, err := db.CreateTable(ctx, "foo", sqlcraft.Pairs{{Key: "id", Value: "INT"}})
	c.Assert(err, IsNil)
	_, err = db.InsertInto(ctx, "foo", sqlcraft.M{"id": 1}, sqlcraft.M{"id": 2})
	c.Assert(err, IsNil)
	rows, err := db.Select(ctx, []any{"id"}, &sqlcraft.SelectOptions{From: "foo", Where: []any{sqlcraft.M{"id": []int{1, 2}}}})
	c.Assert(err, IsNil)
	c.Check(scanStrings(c, rows), DeepEquals, []string{"1", "2"})
	_, err = db.Update(ctx, "foo", &sqlcraft.UpdateOptions{Set: sqlcraft.M{"id": 3}, Where: []any{sqlcraft.M{"id": 2}}})
	c.Assert(err, IsNil)
	_, err = db.DeleteFrom(ctx, "foo", &sqlcraft.DeleteOptions{Where: []any{sqlcraft.M{"id": 3}}})
	c.Assert(err, IsNil)
	_, err = db.DropTable(ctx, "foo")
	c.Assert(err, IsNil)

	c.Assert(mock.ExpectationsWereMet(), IsNil)
}

func (s *MockSuite) TestTransactionCommit(c *C) {
	db, mock := newMock(c)
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "foo"`).WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectCommit()

	tx, err := db.Begin(context.Background(), nil)
	c.Assert(err, IsNil)
	_, err = tx.DeleteFrom(context.Background(), "foo", nil)
	c.Assert(err, IsNil)
	c.Assert(tx.Commit(), IsNil)
	c.Check(tx.Rollback(), Equals, sqlcraft.ErrTXDone)
	c.Assert(mock.ExpectationsWereMet(), IsNil)
}

func (s *MockSuite) TestLogger(c *C) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	db, mock := newMock(c, sqlcraft.WithLogger(logger))
	mock.ExpectExec(`DROP TABLE "foo"`).WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := db.DropTable(context.Background(), "foo")
	c.Assert(err, IsNil)
	c.Check(buf.String(), Matches, `(?s).*msg="executing statement" sql="DROP TABLE \\"foo\\"".*`)
	c.Assert(mock.ExpectationsWereMet(), IsNil)
}

func (s *MockSuite) TestNewDBNilExecutor(c *C) {
	c.Check(sqlcraft.NewDB(nil, nil), IsNil)
}
