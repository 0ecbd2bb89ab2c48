package template

import "testing"

func TestRender(t *testing.T) {
	tests := []struct {
		name   string
		tmpl   string
		fields map[string]string
		want   string
	}{
		{
			name:   "simple substitution",
			tmpl:   "Hi {name}, from {city}!",
			fields: map[string]string{"name": "Ana", "city": "Denver"},
			want:   "Hi Ana, from Denver!",
		},
		{
			name:   "case-insensitive tag",
			tmpl:   "Hi {Name}!",
			fields: map[string]string{"name": "Ana"},
			want:   "Hi Ana!",
		},
		{
			name:   "case-insensitive field key",
			tmpl:   "Hi {name}!",
			fields: map[string]string{"Name": "Ana"},
			want:   "Hi Ana!",
		},
		{
			name:   "unknown tag kept verbatim",
			tmpl:   "Hi {unknown}!",
			fields: map[string]string{},
			want:   "Hi {unknown}!",
		},
		{
			name:   "mixed known and unknown",
			tmpl:   "{name} needs {servce} in {city}",
			fields: map[string]string{"name": "Ana", "service": "plumbing", "city": "Denver"},
			want:   "Ana needs {servce} in Denver",
		},
		{
			name:   "empty template",
			tmpl:   "",
			fields: map[string]string{"name": "Ana"},
			want:   "",
		},
		{
			name:   "no tags",
			tmpl:   "plain text",
			fields: map[string]string{"name": "Ana"},
			want:   "plain text",
		},
		{
			name:   "repeated tag",
			tmpl:   "{name} and {name}",
			fields: map[string]string{"name": "Ana"},
			want:   "Ana and Ana",
		},
		{
			name:   "tag with underscore",
			tmpl:   "interested in {service_type}",
			fields: map[string]string{"service_type": "roofing"},
			want:   "interested in roofing",
		},
		{
			name:   "empty value substitutes empty",
			tmpl:   "Hi {name}!",
			fields: map[string]string{"name": ""},
			want:   "Hi !",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Render(tt.tmpl, tt.fields)
			if got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderDeterministic(t *testing.T) {
	fields := map[string]string{"name": "Ana", "city": "Denver"}
	first := Render("Hi {name} from {city}", fields)
	for i := 0; i < 10; i++ {
		if got := Render("Hi {name} from {city}", fields); got != first {
			t.Fatalf("Render() not deterministic: %q vs %q", got, first)
		}
	}
}
