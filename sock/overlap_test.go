package sock

import "testing"

func TestOverlap(t *testing.T) {
	cases := []struct {
		data, delim string
		want        int
	}{
		{"", "\r\n", 0},
		{"abc", "\r\n", 0},
		{"abc\r", "\r\n", 1},
		{"abc\r\n", "\r\n", 2},
		{"aab", "abab", 2},
		{"aaba", "abab", 3},
		{"ababab", "abab", 4},
		{"x", "xyz", 1},
		{"xy", "xyz", 2},
		{"yx", "xyz", 1},
		{"zzzz", "z", 1},
	}
	for _, c := range cases {
		if got := overlap([]byte(c.data), []byte(c.delim)); got != c.want {
			t.Errorf("overlap(%q, %q) = %d, want %d", c.data, c.delim, got, c.want)
		}
	}
}
