package telegram

import "testing"

func TestSplitNames(t *testing.T) {
	cases := []struct {
		payload string
		name    string
		partner string
		ok      bool
	}{
		{"Иван Анна", "Иван", "Анна", true},
		{"Иван Анна Мария", "Иван", "Анна Мария", true},
		{"  Иван   Анна  ", "Иван", "Анна", true},
		{"Иван", "", "", false},
		{"Иван ", "", "", false},
		{"", "", "", false},
	}
	for _, tc := range cases {
		name, partner, ok := splitNames(tc.payload)
		if name != tc.name || partner != tc.partner || ok != tc.ok {
			t.Errorf("splitNames(%q): got (%q, %q, %v), want (%q, %q, %v)",
				tc.payload, name, partner, ok, tc.name, tc.partner, tc.ok)
		}
	}
}
