package attendance

import "testing"

func TestParseIntDefault(t *testing.T) {
	cases := []struct {
		in   string
		def  int
		want int
	}{
		{"", 50, 50},
		{"20", 50, 20},
		{"abc", 50, 50},
		{"-5", 50, 50}, // 負値はSQLに流さない
		{"-1", 0, 0},
		{"0", 50, 0},
	}
	for _, c := range cases {
		if got := parseIntDefault(c.in, c.def); got != c.want {
			t.Fatalf("parseIntDefault(%q, %d) = %d, want %d", c.in, c.def, got, c.want)
		}
	}
}
