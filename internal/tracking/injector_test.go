package tracking

import (
	"strings"
	"testing"
)

const base = "https://www.example.com"

func TestInjectOpenBeacon(t *testing.T) {
	html := "<html><body><p>Hello</p></body></html>"
	got := InjectOpenBeacon(html, base, "T1")

	if n := strings.Count(got, "/track/open/T1"); n != 1 {
		t.Fatalf("beacon count = %d, want 1", n)
	}

	// Placed before the closing body tag
	beaconIdx := strings.Index(got, "/track/open/T1")
	bodyIdx := strings.Index(got, "</body>")
	if beaconIdx > bodyIdx {
		t.Error("beacon injected after </body>")
	}
}

func TestInjectOpenBeaconUppercaseBodyTag(t *testing.T) {
	html := "<HTML><BODY><P>Hello</P></BODY></HTML>"
	got := InjectOpenBeacon(html, base, "T1")

	if n := strings.Count(got, "/track/open/T1"); n != 1 {
		t.Fatalf("beacon count = %d, want 1", n)
	}
	beaconIdx := strings.Index(got, "/track/open/T1")
	bodyIdx := strings.Index(got, "</BODY>")
	if beaconIdx > bodyIdx {
		t.Error("beacon injected after </BODY>")
	}
}

func TestInjectOpenBeaconNoBodyTag(t *testing.T) {
	got := InjectOpenBeacon("<p>Hello</p>", base, "T1")
	if !strings.HasSuffix(got, "/>") || !strings.Contains(got, "/track/open/T1") {
		t.Errorf("beacon not appended at end: %q", got)
	}
}

func TestInjectOpenBeaconIdempotent(t *testing.T) {
	html := "<html><body><p>Hello</p></body></html>"
	once := InjectOpenBeacon(html, base, "T1")
	twice := InjectOpenBeacon(once, base, "T1")

	if once != twice {
		t.Error("second injection with same id modified the body")
	}
	if n := strings.Count(twice, "/track/open/T1"); n != 1 {
		t.Errorf("beacon count after reinjection = %d, want 1", n)
	}
}

func TestRewriteLinks(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "absolute https link",
			html: `<a href='https://x.com/a'>go</a>`,
			want: `<a href='https://www.example.com/track/click/T1?url=https%3A%2F%2Fx.com%2Fa'>go</a>`,
		},
		{
			name: "absolute http link double-quoted",
			html: `<a href="http://x.com/b?q=1">go</a>`,
			want: `<a href="https://www.example.com/track/click/T1?url=http%3A%2F%2Fx.com%2Fb%3Fq%3D1">go</a>`,
		},
		{
			name: "relative link untouched",
			html: `<a href="/contact">contact</a>`,
			want: `<a href="/contact">contact</a>`,
		},
		{
			name: "mailto untouched",
			html: `<a href="mailto:info@example.com">mail</a>`,
			want: `<a href="mailto:info@example.com">mail</a>`,
		},
		{
			name: "multiple links all rewritten",
			html: `<a href="https://x.com/1">1</a> <a href="https://x.com/2">2</a>`,
			want: `<a href="https://www.example.com/track/click/T1?url=https%3A%2F%2Fx.com%2F1">1</a> <a href="https://www.example.com/track/click/T1?url=https%3A%2F%2Fx.com%2F2">2</a>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RewriteLinks(tt.html, base, "T1")
			if got != tt.want {
				t.Errorf("RewriteLinks()\n got %q\nwant %q", got, tt.want)
			}
		})
	}
}

func TestRewriteLinksNotCumulative(t *testing.T) {
	html := `<a href="https://x.com/a">go</a>`
	once := RewriteLinks(html, base, "T1")
	twice := RewriteLinks(once, base, "T1")

	if once != twice {
		t.Errorf("second rewrite double-wrapped the link:\n once %q\ntwice %q", once, twice)
	}
}
