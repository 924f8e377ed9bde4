package migrations

import "testing"

func TestMigrationsAreRegisteredInOrder(t *testing.T) {
	sorted := Migrations.Sorted()
	if len(sorted) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(sorted))
	}
	want := []string{"2024060101", "2024060102", "2024060103"}
	for i, m := range sorted {
		if m.Name != want[i] {
			t.Fatalf("migration %d: expected %s, got %s", i, want[i], m.Name)
		}
	}
	if createUsersSQL == "" || createResultsSQL == "" || createBankAndSharesSQL == "" {
		t.Fatalf("expected embedded SQL to be present")
	}
}
