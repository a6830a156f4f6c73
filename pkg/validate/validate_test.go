package validate

import "testing"

func TestIdentifier_Valid(t *testing.T) {
	valid := []string{
		"u1",
		"student-42",
		"CS101",
		"aBcDeF0123456789aBcDeF0123ab", // Firebase-style UID
		"week_3_module",
	}
	for _, s := range valid {
		if err := Identifier(s); err != nil {
			t.Errorf("Identifier(%q) = %v, want nil", s, err)
		}
	}
}

func TestIdentifier_Invalid(t *testing.T) {
	invalid := []string{
		"",
		"user:1", // colon is the cache-key separator
		"a b",
		"-leading",
		"semi;colon",
		"way-too-long-0123456789-0123456789-0123456789-0123456789-0123456789",
	}
	for _, s := range invalid {
		if err := Identifier(s); err == nil {
			t.Errorf("Identifier(%q) = nil, want error", s)
		}
	}
}

func TestProgress(t *testing.T) {
	if err := Progress(0); err != nil {
		t.Errorf("Progress(0) = %v, want nil", err)
	}
	if err := Progress(100); err != nil {
		t.Errorf("Progress(100) = %v, want nil", err)
	}
	// Over 100 is clamped downstream, not rejected.
	if err := Progress(137); err != nil {
		t.Errorf("Progress(137) = %v, want nil", err)
	}
	if err := Progress(-1); err == nil {
		t.Error("Progress(-1) = nil, want error")
	}
}
