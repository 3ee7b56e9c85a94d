// Package pathnorm implements the cross-cutting path normalization rules of
// spec §4.7, applied before any path comparison or Host Adapter call.
package pathnorm

import (
	"regexp"
	"strings"
)

// Family selects which host-OS path convention to normalize into.
type Family int

const (
	// FamilyPosix normalizes into forward-slash, leading-"/" form (used on
	// the side referred to as "A" in the spec).
	FamilyPosix Family = iota
	// FamilyWindows normalizes into backslash form with a lower-cased drive
	// letter (the side referred to as "B" in the spec).
	FamilyWindows
)

var (
	staleSuffixes  = []string{".git", ".tmp", ".bak", ".swp"}
	collapseSlash  = regexp.MustCompile(`/{2,}`)
	driveLetterRE  = regexp.MustCompile(`^[A-Za-z]:`)
	windowsDriveRE = regexp.MustCompile(`^([A-Za-z]):`)
)

// Normalize applies the spec §4.7 pipeline for the given host family:
//  1. strip trailing .git/.tmp/.bak/.swp (one pass)
//  2. family-specific slash/drive-letter handling
func Normalize(path string, family Family) string {
	p := stripStaleSuffix(path)
	switch family {
	case FamilyWindows:
		return normalizeWindows(p)
	default:
		return normalizePosix(p)
	}
}

func stripStaleSuffix(path string) string {
	for _, suffix := range staleSuffixes {
		if strings.HasSuffix(path, suffix) {
			return strings.TrimSuffix(path, suffix)
		}
	}
	return path
}

func normalizePosix(path string) string {
	p := strings.ReplaceAll(path, `\`, "/")
	if driveLetterRE.MatchString(p) {
		p = p[2:]
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	p = collapseSlash.ReplaceAllString(p, "/")
	return p
}

func normalizeWindows(path string) string {
	p := strings.ReplaceAll(path, "/", `\`)
	if m := windowsDriveRE.FindStringSubmatch(p); m != nil {
		p = strings.ToLower(m[1]) + p[1:]
	}
	return p
}

// PathMatch implements the §4.1 handshake path-match rule: normalize each
// side (lower-case, "\" -> "/", strip trailing "/"), then require one to be
// a prefix of the other, so a multi-root workspace whose listed root is a
// parent of the other side's still matches.
func PathMatch(a, b string) bool {
	na := matchForm(a)
	nb := matchForm(b)
	if na == "" || nb == "" {
		return na == nb
	}
	return strings.HasPrefix(na, nb) || strings.HasPrefix(nb, na)
}

func matchForm(path string) string {
	p := strings.ReplaceAll(path, `\`, "/")
	p = strings.ToLower(p)
	p = strings.TrimRight(p, "/")
	return p
}
