package sqlitey_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/FAU-CDI/skosd/internal/sqlitey"
	"github.com/huandu/go-sqlbuilder"
)

func ExampleColumn() {
	db, flavor, err := sqlitey.Open(sqlitey.DriverSQLite, ":memory:")
	if err != nil {
		panic(err)
	}
	defer db.Close()

	ctx := context.Background()

	table := flavor.NewCreateTableBuilder().CreateTable("example").IfNotExists()
	table.Define("name", "TEXT", "PRIMARY KEY")

	insert := flavor.NewInsertBuilder().InsertInto("example").Cols("name")
	for _, name := range []string{"b", "c", "a"} {
		insert.Values(name)
	}
	if err := sqlitey.Exec(ctx, db, table, insert); err != nil {
		panic(err)
	}

	sb := flavor.NewSelectBuilder()
	sb.Select("name").From("example").OrderBy("name").Asc()

	names, err := sqlitey.Column[string](ctx, db, sb)
	if err != nil {
		panic(err)
	}
	fmt.Println(names)
	// Output: [a b c]
}

func TestTx_rollback(t *testing.T) {
	t.Parallel()

	db, flavor, err := sqlitey.Open(sqlitey.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	ctx := context.Background()

	table := flavor.NewCreateTableBuilder().CreateTable("example").IfNotExists()
	table.Define("name", "TEXT")
	if err := sqlitey.Exec(ctx, db, table); err != nil {
		t.Fatal(err)
	}

	errAbort := errors.New("abort")
	err = sqlitey.Tx(ctx, db, func(tx *sql.Tx) error {
		if err := sqlitey.Exec(ctx, tx, flavor.NewInsertBuilder().InsertInto("example").Cols("name").Values("x")); err != nil {
			return err
		}
		return errAbort
	})
	if !errors.Is(err, errAbort) {
		t.Fatalf("Tx() = %v, want %v", err, errAbort)
	}

	var count int
	if err := sqlitey.Row(ctx, db, flavor.NewSelectBuilder().Select("COUNT(*)").From("example"), &count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("rolled back transaction left %d rows", count)
	}
}

func TestFlavor(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		driver  string
		want    sqlbuilder.Flavor
		wantErr bool
	}{
		{sqlitey.DriverSQLite, sqlbuilder.SQLite, false},
		{sqlitey.DriverMySQL, sqlbuilder.MySQL, false},
		{"postgres", 0, true},
	} {
		got, err := sqlitey.Flavor(tt.driver)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("Flavor(%q) = %v, %v", tt.driver, got, err)
		}
	}
}
