package actor

import (
	"strconv"
	"strings"
)

// ActorId is an opaque, monotonically assigned, non-zero identifier, unique
// for the lifetime of the system that assigned it (spec.md §3).
type ActorId uint64

// ActorPath is the ordered sequence of ActorIds from the root guardian down
// to a given actor. Segments are append-only: a child's path is always its
// parent's path with exactly one ActorId appended.
type ActorPath struct {
	segments []ActorId
}

// RootPath returns the empty path; every actor path, the root guardian's
// included, is built by appending onto it.
func RootPath() ActorPath {
	return ActorPath{}
}

// Append returns a new path with id appended, leaving the receiver
// unmodified.
func (p ActorPath) Append(id ActorId) ActorPath {
	next := make([]ActorId, len(p.segments)+1)
	copy(next, p.segments)
	next[len(p.segments)] = id
	return ActorPath{segments: next}
}

// Parent returns the path with its last segment removed and false if p is
// already the root path.
func (p ActorPath) Parent() (ActorPath, bool) {
	if len(p.segments) == 0 {
		return p, false
	}
	return ActorPath{segments: append([]ActorId(nil), p.segments[:len(p.segments)-1]...)}, true
}

// Len reports the number of segments, the root guardian's own segment
// included.
func (p ActorPath) Len() int {
	return len(p.segments)
}

// Segments returns a defensive copy of the path's ActorIds, root first.
func (p ActorPath) Segments() []ActorId {
	return append([]ActorId(nil), p.segments...)
}

// Last returns the final segment (the path's own actor) and false for the
// root path.
func (p ActorPath) Last() (ActorId, bool) {
	if len(p.segments) == 0 {
		return 0, false
	}
	return p.segments[len(p.segments)-1], true
}

// IsPrefixOf reports whether p is a prefix of other, which holds for every
// ancestor-descendant pair per spec.md §3's "the parent path is a prefix"
// invariant.
func (p ActorPath) IsPrefixOf(other ActorPath) bool {
	if len(p.segments) > len(other.segments) {
		return false
	}
	for i, seg := range p.segments {
		if other.segments[i] != seg {
			return false
		}
	}
	return true
}

func (p ActorPath) String() string {
	parts := make([]string, len(p.segments))
	for i, seg := range p.segments {
		parts[i] = strconv.FormatUint(uint64(seg), 10)
	}
	return "/" + strings.Join(parts, "/")
}

// PID is the optional external, remotable address form described in
// spec.md §6: scheme://system@host[:port]/path/segment/…[#tag]
type PID struct {
	Scheme string
	System string
	Host   string
	Port   uint16
	Path   []string
	Tag    string
}

// String renders the PID back into its external URI form.
func (p PID) String() string {
	var b strings.Builder
	b.WriteString(p.Scheme)
	b.WriteString("://")
	b.WriteString(p.System)
	b.WriteByte('@')
	b.WriteString(p.Host)
	if p.Port != 0 {
		b.WriteByte(':')
		b.WriteString(strconv.FormatUint(uint64(p.Port), 10))
	}
	b.WriteByte('/')
	b.WriteString(strings.Join(p.Path, "/"))
	if p.Tag != "" {
		b.WriteByte('#')
		b.WriteString(p.Tag)
	}
	return b.String()
}

// ParsePID parses the external URI form of a PID, returning a *ParseError
// for every malformed input rather than a generic error so callers can
// branch on ParseErrorKind.
func ParsePID(s string) (PID, error) {
	var pid PID

	schemeIdx := strings.Index(s, "://")
	if schemeIdx < 0 {
		return PID{}, &ParseError{Kind: ParseErrMissingScheme, Input: s}
	}
	pid.Scheme = s[:schemeIdx]
	rest := s[schemeIdx+3:]

	if tagIdx := strings.IndexByte(rest, '#'); tagIdx >= 0 {
		pid.Tag = rest[tagIdx+1:]
		rest = rest[:tagIdx]
	}

	atIdx := strings.IndexByte(rest, '@')
	if atIdx < 0 {
		return PID{}, &ParseError{Kind: ParseErrMissingSystem, Input: s}
	}
	pid.System = rest[:atIdx]
	if pid.System == "" {
		return PID{}, &ParseError{Kind: ParseErrMissingSystem, Input: s}
	}
	rest = rest[atIdx+1:]

	slashIdx := strings.IndexByte(rest, '/')
	hostPort := rest
	var pathStr string
	if slashIdx >= 0 {
		hostPort = rest[:slashIdx]
		pathStr = rest[slashIdx+1:]
	}

	if colonIdx := strings.IndexByte(hostPort, ':'); colonIdx >= 0 {
		pid.Host = hostPort[:colonIdx]
		port, err := strconv.ParseUint(hostPort[colonIdx+1:], 10, 16)
		if err != nil {
			return PID{}, &ParseError{Kind: ParseErrInvalidPort, Input: s}
		}
		pid.Port = uint16(port)
	} else {
		pid.Host = hostPort
	}

	if pathStr != "" {
		for _, seg := range strings.Split(pathStr, "/") {
			if seg == "" {
				return PID{}, &ParseError{Kind: ParseErrInvalidPathSegment, Input: s}
			}
			pid.Path = append(pid.Path, seg)
		}
	}

	return pid, nil
}
