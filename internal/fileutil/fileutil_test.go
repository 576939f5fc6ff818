package fileutil

import "testing"

func TestSanitizeFileName(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "episode", "episode"},
		{"spaces collapse", "The  Sublime   Weekendmix", "The_Sublime_Weekendmix"},
		{"diacritics folded", "Café del Mar", "Cafe_del_Mar"},
		{"unsafe characters", `a/b\c:d*e?"<>|f`, "a_b_c_d_e_f"},
		{"keeps extension dots", "mix.part-2.mp3", "mix.part-2.mp3"},
		{"empty", "", "untitled"},
		{"only separators", "///", "untitled"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeFileName(tc.input); got != tc.want {
				t.Fatalf("SanitizeFileName(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestFreeSpace(t *testing.T) {
	free, err := FreeSpace(t.TempDir())
	if err != nil {
		t.Fatalf("FreeSpace failed: %v", err)
	}
	if free == 0 {
		t.Fatal("expected non-zero free space on temp filesystem")
	}
}
