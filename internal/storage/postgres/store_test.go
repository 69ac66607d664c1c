package postgres

import (
	"strings"
	"testing"
)

func TestMigrationURL(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"postgres://u:p@localhost:5432/fintrack?sslmode=disable", "pgx5://u:p@localhost:5432/fintrack?sslmode=disable", true},
		{"postgresql://localhost/fintrack", "pgx5://localhost/fintrack", true},
		{"pgx5://localhost/fintrack", "pgx5://localhost/fintrack", true},
		{"host=localhost dbname=fintrack", "", false},
	}
	for i, tc := range cases {
		got, err := migrationURL(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("case %d: got %q, %v", i, got, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestMigrationURLRedactsCredentials(t *testing.T) {
	_, err := migrationURL("mysql://root:secret@db/fintrack")
	if err == nil {
		t.Fatal("expected error")
	}
	if strings.Contains(err.Error(), "secret") {
		t.Fatalf("credentials leaked in error: %v", err)
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected up and down migration, got %d files", len(entries))
	}
}
