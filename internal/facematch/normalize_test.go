package facematch

import "testing"

func TestNormalizeStudentName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Jan Novák", "jan novak"},
		{"jan_novak", "jan novak"},
		{"Anna-Marie  Dvořák", "anna marie dvorak"},
		{"  alice ", "alice"},
		{"Žluťoučký kůň", "zlutoucky kun"},
		{"ŠTĚPÁN\tHOLUB", "stepan holub"},
		{"", ""},
	}
	for _, c := range cases {
		if got := NormalizeStudentName(c.in); got != c.want {
			t.Errorf("NormalizeStudentName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSameStudent(t *testing.T) {
	if !SameStudent("Jan Novák", "jan_novak") {
		t.Error("dataset folder name should match the display name")
	}
	if !SameStudent("BOB", "bob") {
		t.Error("lookup should ignore case")
	}
	if SameStudent("alice", "alicia") {
		t.Error("different names must not match")
	}
}
