package blob

import "testing"

func TestSplitURI(t *testing.T) {
	tests := []struct {
		name       string
		uri        string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{
			name:       "plain object",
			uri:        "gs://statements/2026/feb.pdf",
			wantBucket: "statements",
			wantObject: "2026/feb.pdf",
		},
		{
			name:    "missing scheme",
			uri:     "statements/2026/feb.pdf",
			wantErr: true,
		},
		{
			name:    "bucket only",
			uri:     "gs://statements",
			wantErr: true,
		},
		{
			name:    "empty object path",
			uri:     "gs://statements/",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket, object, err := SplitURI(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SplitURI(%q) error = %v, wantErr %v", tt.uri, err, tt.wantErr)
			}
			if bucket != tt.wantBucket || object != tt.wantObject {
				t.Errorf("SplitURI(%q) = %q, %q, want %q, %q", tt.uri, bucket, object, tt.wantBucket, tt.wantObject)
			}
		})
	}
}

func TestFilename(t *testing.T) {
	if got := Filename("gs://bucket/folder/file.pdf"); got != "file.pdf" {
		t.Errorf("Filename() = %q, want %q", got, "file.pdf")
	}
	if got := Filename("gs://bucket"); got != "bucket" {
		t.Errorf("Filename() = %q, want %q", got, "bucket")
	}
}
