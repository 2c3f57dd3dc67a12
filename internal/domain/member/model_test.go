package member

import "testing"

func TestIDByName(t *testing.T) {
	t.Parallel()

	members := []Member{
		{ID: 1, Name: "Kim Minjun"},
		{ID: 2, Name: " Lee Jiho "},
		{ID: 3, Name: "Kim Minjun"}, // duplicate keeps first id
		{ID: 4, Name: "   "},
	}

	idx := IDByName(members)
	if len(idx) != 2 {
		t.Fatalf("unexpected index size: %d", len(idx))
	}
	if idx["Kim Minjun"] != 1 {
		t.Fatalf("duplicate name should keep first id, got %d", idx["Kim Minjun"])
	}
	if idx["Lee Jiho"] != 2 {
		t.Fatalf("names should be trimmed, got %+v", idx)
	}
}

func TestMember_Validate(t *testing.T) {
	t.Parallel()

	if err := (Member{ID: 1, Name: "Choi Ara"}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (Member{ID: 0, Name: "x"}).Validate(); err == nil {
		t.Fatalf("expected error for zero id")
	}
	if err := (Member{ID: 1, Name: " "}).Validate(); err == nil {
		t.Fatalf("expected error for blank name")
	}
}
