package sizefmt

import "testing"

func TestBytesToMB(t *testing.T) {
	cases := []struct {
		in   int64
		want float64
	}{
		{0, 0},
		{1024 * 1024, 1},
		{5 * 1024 * 1024, 5},
		{1536 * 1024, 1.5},
		{1234567, 1.18},
	}
	for _, tc := range cases {
		if got := BytesToMB(tc.in); got != tc.want {
			t.Fatalf("BytesToMB(%d): want=%v got=%v", tc.in, tc.want, got)
		}
	}
	if got := MBToBytes(2); got != 2*1024*1024 {
		t.Fatalf("MBToBytes(2): got=%d", got)
	}
}
