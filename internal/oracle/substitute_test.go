package oracle

import "testing"

func TestSubstitute(t *testing.T) {
	cases := []struct {
		sql, from, to, want string
	}{
		{"SELECT c0 FROM t0", "t0", "t1", "SELECT c0 FROM t1"},
		{"SELECT c0 FROM t01", "t0", "t1", "SELECT c0 FROM t01"},
		{"SELECT 'xt0y', 't0' FROM t0", "t0", "t1", "SELECT 'xt0y', 't0' FROM t1"},
		{"SELECT c1, c10, c1+c2 FROM t0", "c1+c2", "c0", "SELECT c1, c10, c0 FROM t0"},
		{"SELECT (c1+c2), c1+c20 FROM t0", "c1+c2", "c0", "SELECT (c0), c1+c20 FROM t0"},
		{"SELECT SUM(c1) FROM t0 HAVING (SUM(c1) > 'SUM(c1)')", "SUM(c1)", "c0", "SELECT c0 FROM t0 HAVING (c0 > 'SUM(c1)')"},
		{"SELECT 'it''s t0' FROM t0", "t0", "t1", "SELECT 'it''s t0' FROM t1"},
		{"SELECT c0 FROM t0 WHERE c2 IN (SELECT c2 FROM t0)", "t0", "t1", "SELECT c0 FROM t1 WHERE c2 IN (SELECT c2 FROM t1)"},
		{"SELECT c1 IS NULL", "c1 IS NULL", "c0", "SELECT c0"},
		{"SELECT x", "", "y", "SELECT x"},
	}
	for _, tc := range cases {
		if got := Substitute(tc.sql, tc.from, tc.to); got != tc.want {
			t.Fatalf("Substitute(%q, %q, %q) = %q, want %q", tc.sql, tc.from, tc.to, got, tc.want)
		}
	}
}

func TestSubstituteAllOrder(t *testing.T) {
	got := SubstituteAll("SELECT (c0+c1) FROM t0",
		[2]string{"t0", "t1"},
		[2]string{"c0+c1", "c0"},
	)
	if got != "SELECT (c0) FROM t1" {
		t.Fatalf("unexpected %q", got)
	}
}
