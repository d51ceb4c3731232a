package slug

import "testing"

func set(s ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(s))
	for _, v := range s {
		m[v] = struct{}{}
	}
	return m
}

func TestGenerate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		existing map[string]struct{}
		want     string
	}{
		{"simple", "Q4 Sales Report", nil, "q4-sales-report"},
		{"punctuation collapses", "A!B", nil, "a-b"},
		{"first collision", "A!B", set("a-b"), "a-b-2"},
		{"second collision", "A!B", set("a-b", "a-b-2"), "a-b-3"},
		{"gap is reused", "A!B", set("a-b", "a-b-3"), "a-b-2"},
		{"trim hyphens", "  --Hello, World!--  ", nil, "hello-world"},
		{"empty", "", nil, Fallback},
		{"symbols only", "!!!???", nil, Fallback},
		{"fallback collision", "***", set(Fallback), Fallback + "-2"},
		{"unicode becomes hyphen", "Café Ünïcode", nil, "caf-n-code"},
		{"digits kept", "2024/Q1", nil, "2024-q1"},
		{"unrelated existing", "Report", set("other"), "report"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Generate(tt.input, tt.existing); got != tt.want {
				t.Errorf("Generate(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestGenerateDeterministic(t *testing.T) {
	existing := set("q4-sales-report", "q4-sales-report-2")
	first := Generate("Q4 Sales Report", existing)
	for range 10 {
		if got := Generate("Q4 Sales Report", existing); got != first {
			t.Fatalf("got %q, want %q", got, first)
		}
	}
	if _, ok := existing[first]; ok {
		t.Fatalf("%q collides with existing slugs", first)
	}
}

func TestTransliterate(t *testing.T) {
	o := Options{Transliterate: true}
	tests := []struct {
		input string
		want  string
	}{
		{"Café Ünïcode", "cafe-unicode"},
		{"Crème brûlée", "creme-brulee"},
		{"日本語", Fallback},
	}
	for _, tt := range tests {
		if got := o.Base(tt.input); got != tt.want {
			t.Errorf("Base(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
