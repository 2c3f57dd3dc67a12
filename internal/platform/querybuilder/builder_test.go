package querybuilder

import "testing"

func TestSelectBuilder(t *testing.T) {
	query, args, err := Select("date_id", "payload").
		From("sheet_snapshots").
		Where(Eq("date_id", int64(1730505600000))).
		OrderBy("date_id DESC").
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT date_id, payload FROM sheet_snapshots WHERE date_id = ? ORDER BY date_id DESC"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 1 || args[0] != int64(1730505600000) {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestSelectBuilder_RequiresTable(t *testing.T) {
	if _, _, err := Select("date_id").ToSQL(); err == nil {
		t.Fatal("expected an error for a select without a table")
	}
}

func TestInsertBuilder(t *testing.T) {
	query, args, err := InsertInto("sheet_snapshots").
		Columns("date_id", "payload").
		Values(int64(1), "{}").
		Suffix("ON CONFLICT(date_id) DO UPDATE SET payload = excluded.payload").
		ToSQL()
	if err != nil {
		t.Fatalf("build insert query: %v", err)
	}

	wantQuery := "INSERT INTO sheet_snapshots (date_id, payload) VALUES (?, ?) ON CONFLICT(date_id) DO UPDATE SET payload = excluded.payload"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != int64(1) || args[1] != "{}" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertBuilder_ValueCountMismatch(t *testing.T) {
	_, _, err := InsertInto("sheet_snapshots").
		Columns("date_id", "payload").
		Values(int64(1)).
		ToSQL()
	if err == nil {
		t.Fatal("expected an error for mismatched values")
	}
}

func TestDeleteBuilder(t *testing.T) {
	query, args, err := DeleteFrom("sheet_snapshots").
		Where(Eq("date_id", int64(1730505600000))).
		ToSQL()
	if err != nil {
		t.Fatalf("build delete query: %v", err)
	}

	wantQuery := "DELETE FROM sheet_snapshots WHERE date_id = ?"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 1 || args[0] != int64(1730505600000) {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestDeleteBuilder_RequiresCondition(t *testing.T) {
	if _, _, err := DeleteFrom("sheet_snapshots").ToSQL(); err == nil {
		t.Fatal("expected an error for a delete without conditions")
	}
}

func TestInsertModel(t *testing.T) {
	type stamped struct {
		SavedAt string `db:"saved_at"`
	}
	type row struct {
		stamped
		DateID  int64  `db:"date_id"`
		Payload string `db:"payload"`
		Ignored string `db:"-"`
	}

	query, args, err := InsertModel("sheet_snapshots", row{
		stamped: stamped{SavedAt: "2024-11-02T00:00:00Z"},
		DateID:  7,
		Payload: "{}",
	}, "")
	if err != nil {
		t.Fatalf("build insert-model query: %v", err)
	}

	wantQuery := "INSERT INTO sheet_snapshots (saved_at, date_id, payload) VALUES (?, ?, ?)"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 3 || args[1] != int64(7) {
		t.Fatalf("unexpected args: %+v", args)
	}
}
