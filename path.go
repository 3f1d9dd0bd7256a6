package smbkit

import "strings"

// SplitSharePath splits a URL path into the share name and the remote file
// path. The leading separator is optional, the first segment is the share,
// and the remainder becomes the file path with forward slashes rewritten
// to backslashes. A path with no separator between share and file is
// malformed: "/" and "/share" both fail.
func SplitSharePath(urlPath string) (share, path string, err error) {
	p := urlPath
	if strings.HasPrefix(p, "/") || strings.HasPrefix(p, "\\") {
		p = p[1:]
	}

	sep := strings.IndexAny(p, "/\\")
	if sep < 0 {
		return "", "", ErrURLMalformed
	}

	share = p[:sep]
	path = strings.ReplaceAll(p[sep+1:], "/", "\\")
	return share, path, nil
}
