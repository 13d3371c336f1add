package migrate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements(`create table a (id text); insert into a values ('x;y'); `)
	if len(stmts) != 2 {
		t.Fatalf("got %d statements: %q", len(stmts), stmts)
	}
	if stmts[1] != ` insert into a values ('x;y');` {
		t.Fatalf("semicolon inside string literal split the statement: %q", stmts[1])
	}

	if got := splitStatements("select 1"); len(got) != 1 {
		t.Fatalf("trailing statement without semicolon lost: %q", got)
	}
}

func TestCollectSQLOrdersByName(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"0002_requests.up.sql", "0001_users.up.sql", "0001_users.down.sql", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("select 1;"), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	files, err := collectSQL(dir, ".up.sql")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Fatalf("got %d files", len(files))
	}
	if files[0].base != "0001_users.up.sql" || files[1].base != "0002_requests.up.sql" {
		t.Fatalf("wrong order: %v", files)
	}

	if missing, err := collectSQL(filepath.Join(dir, "absent"), ".up.sql"); err != nil || missing != nil {
		t.Fatalf("missing dir should yield nothing: %v, %v", missing, err)
	}
}

func TestUpAppliesOnlyPendingFiles(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"0001_users.up.sql":    "create table users (id text primary key);",
		"0002_requests.up.sql": "create table blood_requests (id text primary key);",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectExec("create table if not exists schema_history").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select name from schema_history where kind").
		WithArgs(kindMigration).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("0001_users.up.sql"))

	// Only the second file is pending.
	mock.ExpectBegin()
	mock.ExpectExec("create table blood_requests").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectExec("insert into schema_history").
		WithArgs("0002_requests.up.sql", kindMigration, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	runner := New(db, dir, "")
	if err := runner.Up(t.Context()); err != nil {
		t.Fatalf("Up: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDownWithoutHistory(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectExec("create table if not exists schema_history").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("create table if not exists schema_history").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select name from schema_history where kind").
		WithArgs(kindMigration).
		WillReturnRows(sqlmock.NewRows([]string{"name"}))

	runner := New(db, t.TempDir(), "")
	if err := runner.Down(t.Context()); err == nil {
		t.Fatalf("Down with empty history should fail")
	}
}
