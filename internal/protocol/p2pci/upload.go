package p2pci

import (
	"path"
	"strconv"
	"strings"
)

// Upload is one document announced during registration:
//
//	<pathHint> <fileName> <rfcNumber> <title...>
type Upload struct {
	PathHint string
	FileName string
	Number   int
	Title    string
}

// ParseUpload parses a registration upload line. The title runs to the end
// of the line and may contain spaces.
func ParseUpload(line string) (Upload, error) {
	var parts [4]string
	rest := trimEOL(line)
	for i := 0; i < 3; i++ {
		parts[i], rest = cutField(rest)
	}
	parts[3] = rest
	if parts[2] == "" {
		return Upload{}, NewStatusError(StatusBadRequest, ErrMalformedUpload, "expected pathHint, fileName, number and title")
	}

	hint, err := ValidatePathHint(parts[0])
	if err != nil {
		return Upload{}, err
	}

	name := parts[1]
	switch {
	case name == "" || name == "." || name == "..":
		return Upload{}, NewStatusError(StatusBadRequest, ErrMalformedUpload, "file name %q", clip(name))
	case strings.ContainsAny(name, `/\`):
		return Upload{}, NewStatusError(StatusBadRequest, ErrMalformedUpload, "file name %q is not a base name", clip(name))
	case len(name) > MaxFileNameLen:
		return Upload{}, NewStatusError(StatusBadRequest, ErrTokenTooLong, "file name exceeds %d bytes", MaxFileNameLen)
	}

	n, err := strconv.Atoi(parts[2])
	if err != nil || n <= 0 {
		return Upload{}, NewStatusError(StatusBadRequest, ErrMalformedUpload, "rfc number %q", clip(parts[2]))
	}

	title := strings.TrimSpace(parts[3])
	if title == "" {
		return Upload{}, NewStatusError(StatusBadRequest, ErrMalformedUpload, "empty title")
	}
	if len(title) > MaxTitleLen {
		return Upload{}, NewStatusError(StatusBadRequest, ErrTokenTooLong, "title exceeds %d bytes", MaxTitleLen)
	}

	return Upload{PathHint: hint, FileName: name, Number: n, Title: title}, nil
}

// ValidatePathHint checks that hint is a relative path that stays inside the
// documents root and returns it cleaned. "." is allowed and means the root.
func ValidatePathHint(hint string) (string, error) {
	if hint == "" {
		return "", NewStatusError(StatusBadRequest, ErrMalformedUpload, "empty path hint")
	}
	if len(hint) > MaxPathHintLen {
		return "", NewStatusError(StatusBadRequest, ErrTokenTooLong, "path hint exceeds %d bytes", MaxPathHintLen)
	}
	if strings.Contains(hint, `\`) || path.IsAbs(hint) {
		return "", NewStatusError(StatusBadRequest, ErrMalformedUpload, "path hint %q must be relative", clip(hint))
	}
	for _, seg := range strings.Split(hint, "/") {
		if seg == ".." {
			return "", NewStatusError(StatusBadRequest, ErrMalformedUpload, "path hint %q contains ..", clip(hint))
		}
	}
	return path.Clean(hint), nil
}

// cutField returns the first space separated field of s and the remainder
// with leading spaces removed.
func cutField(s string) (field, rest string) {
	s = strings.TrimLeft(s, " \t")
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimLeft(s[i:], " \t")
}

// IsEndOfUpload reports whether line is the upload terminator.
func IsEndOfUpload(line string) bool {
	return trimEOL(line) == EndOfUpload
}

// DocumentFileName is the on-disk name of RFC n inside a peer's directory.
func DocumentFileName(n int) string {
	return "rfc" + strconv.Itoa(n) + ".txt"
}
