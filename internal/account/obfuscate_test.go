package account

import "testing"

func TestFuzzObfuscatorDeterministic(t *testing.T) {
	o := NewFuzzObfuscator()

	s1 := o.Size("files/docs/report.pdf", 1000)
	s2 := o.Size("files/docs/report.pdf", 1000)
	if s1 != s2 {
		t.Errorf("size not deterministic: %d vs %d", s1, s2)
	}

	m1 := o.ModTime("files/docs/report.pdf", 1700000000000)
	m2 := o.ModTime("files/docs/report.pdf", 1700000000000)
	if m1 != m2 {
		t.Errorf("modtime not deterministic: %d vs %d", m1, m2)
	}
}

func TestFuzzObfuscatorSizeBounds(t *testing.T) {
	o := NewFuzzObfuscator()
	paths := []string{"a", "b/c", "photos/x.jpg", "music/deep/track.flac"}
	for _, p := range paths {
		got := o.Size(p, 1000)
		if got < 750 || got > 1250 {
			t.Errorf("Size(%q, 1000) = %d, outside ±25%%", p, got)
		}
	}
}

func TestFuzzObfuscatorSizeNonNegative(t *testing.T) {
	o := NewFuzzObfuscator()
	if got := o.Size("x", 0); got != 0 {
		t.Errorf("zero size should pass through, got %d", got)
	}
	if got := o.Size("x", 1); got < 0 {
		t.Errorf("negative displayed size: %d", got)
	}
}

func TestFuzzObfuscatorModTimeBounds(t *testing.T) {
	const thirtyDaysMillis = int64(30 * 24 * 60 * 60 * 1000)
	o := NewFuzzObfuscator()
	base := int64(1700000000000)
	got := o.ModTime("photos/holiday.jpg", base)
	if got < base-thirtyDaysMillis || got > base+thirtyDaysMillis {
		t.Errorf("ModTime shifted beyond ±30 days: %d", got-base)
	}
}

func TestFuzzObfuscatorVariesByPath(t *testing.T) {
	o := NewFuzzObfuscator()
	same := 0
	paths := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for _, p := range paths {
		if o.Size(p, 100000) == 100000 {
			same++
		}
	}
	if same == len(paths) {
		t.Error("obfuscator never changed any size")
	}
}
