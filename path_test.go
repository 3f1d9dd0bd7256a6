package smbkit

import (
	"errors"
	"testing"
)

func TestSplitSharePath(t *testing.T) {
	tests := []struct {
		name      string
		urlPath   string
		wantShare string
		wantPath  string
		wantErr   error
	}{
		{
			name:      "simple path",
			urlPath:   "/share/file.txt",
			wantShare: "share",
			wantPath:  "file.txt",
		},
		{
			name:      "nested path",
			urlPath:   "/public/dir/sub/hello.txt",
			wantShare: "public",
			wantPath:  `dir\sub\hello.txt`,
		},
		{
			name:      "no leading separator",
			urlPath:   "share/file.txt",
			wantShare: "share",
			wantPath:  "file.txt",
		},
		{
			name:      "backslash separators",
			urlPath:   `\share\dir\file.txt`,
			wantShare: "share",
			wantPath:  `dir\file.txt`,
		},
		{
			name:      "mixed separators",
			urlPath:   `/share\dir/file.txt`,
			wantShare: "share",
			wantPath:  `dir\file.txt`,
		},
		{
			name:      "trailing slash yields empty file path",
			urlPath:   "/share/",
			wantShare: "share",
			wantPath:  "",
		},
		{
			name:    "root alone",
			urlPath: "/",
			wantErr: ErrURLMalformed,
		},
		{
			name:    "share without file",
			urlPath: "/share",
			wantErr: ErrURLMalformed,
		},
		{
			name:    "empty",
			urlPath: "",
			wantErr: ErrURLMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			share, path, err := SplitSharePath(tt.urlPath)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("SplitSharePath(%q) error = %v, want %v", tt.urlPath, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("SplitSharePath(%q) unexpected error: %v", tt.urlPath, err)
			}
			if share != tt.wantShare {
				t.Errorf("share = %q, want %q", share, tt.wantShare)
			}
			if path != tt.wantPath {
				t.Errorf("path = %q, want %q", path, tt.wantPath)
			}
		})
	}
}
