package pipeline

import "testing"

func TestFilterNew(t *testing.T) {
	records := []*TransactionRecord{
		{ID: "a"}, {ID: "b"}, {ID: "a"}, {ID: "c"},
	}
	existing := map[string]struct{}{"b": {}}

	fresh := FilterNew(records, existing)
	if len(fresh) != 2 {
		t.Fatalf("len = %d, want 2", len(fresh))
	}
	if fresh[0].ID != "a" || fresh[1].ID != "c" {
		t.Errorf("ids = [%s %s], want [a c]", fresh[0].ID, fresh[1].ID)
	}
}

func TestFilterNewEmptyInput(t *testing.T) {
	if got := FilterNew(nil, map[string]struct{}{"x": {}}); len(got) != 0 {
		t.Fatalf("len = %d, want 0", len(got))
	}
}
