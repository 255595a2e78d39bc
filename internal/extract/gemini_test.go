package extract

import "testing"

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "already clean",
			raw:  `{"text":"hi","tables":[],"page_count":1}`,
			want: `{"text":"hi","tables":[],"page_count":1}`,
		},
		{
			name: "json fence",
			raw:  "```json\n{\"page_count\":2}\n```",
			want: `{"page_count":2}`,
		},
		{
			name: "bare fence",
			raw:  "```\n{\"page_count\":2}\n```",
			want: `{"page_count":2}`,
		},
		{
			name: "prose around object",
			raw:  "Here is the result:\n{\"page_count\":3}\nHope that helps!",
			want: `{"page_count":3}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanModelJSON(tt.raw); got != tt.want {
				t.Errorf("cleanModelJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}
