package textutil

import "testing"

func TestPlainText(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "   ", want: ""},
		{name: "plain", input: "  Great gloves  ", want: "Great gloves"},
		{name: "strips tags", input: "<b>Nice</b> <script>alert(1)</script>product", want: "Nice product"},
		{name: "keeps apostrophes", input: "Doctor's choice & more", want: "Doctor's choice & more"},
		{name: "collapses whitespace", input: "a \t  b\r\nc", want: "a b\nc"},
		{name: "drops control characters", input: "ok\x07ay", want: "okay"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := PlainText(tc.input); got != tc.want {
				t.Fatalf("PlainText(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestNormalizeCode(t *testing.T) {
	if got := NormalizeCode(" save10 "); got != "SAVE10" {
		t.Fatalf("unexpected code %q", got)
	}
}
