package platform

import "testing"

func TestParse_acceptsClosedSet(t *testing.T) {
	for _, name := range []string{"Windows", "Macos", "Linux"} {
		p, err := Parse(name)
		if err != nil {
			t.Errorf("Parse(%q) failed: %v", name, err)
		}
		if string(p) != name {
			t.Errorf("Parse(%q) = %q", name, p)
		}
	}
}

func TestParse_rejectsUnknown(t *testing.T) {
	for _, name := range []string{"windows", "Darwin", "freebsd", ""} {
		if _, err := Parse(name); err == nil {
			t.Errorf("Parse(%q) should fail", name)
		}
	}
}

func TestCurrent_isKnown(t *testing.T) {
	if !Known(string(Current())) {
		t.Errorf("Current() returned unknown platform %q", Current())
	}
}
