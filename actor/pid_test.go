package actor

import (
	"errors"
	"testing"
)

func TestActorPathAppendParentPrefix(t *testing.T) {
	root := RootPath()
	if root.Len() != 0 {
		t.Fatalf("expected RootPath to have length 0, got %d", root.Len())
	}
	if _, ok := root.Last(); ok {
		t.Fatalf("expected RootPath.Last() to report false")
	}

	child := root.Append(1).Append(2).Append(3)
	if child.Len() != 3 {
		t.Fatalf("expected depth 3, got %d", child.Len())
	}
	if last, ok := child.Last(); !ok || last != 3 {
		t.Fatalf("expected Last() == 3, got %v ok=%v", last, ok)
	}

	parent, ok := child.Parent()
	if !ok || parent.Len() != 2 {
		t.Fatalf("expected a 2-segment parent, got %v ok=%v", parent, ok)
	}
	if !parent.IsPrefixOf(child) {
		t.Fatalf("expected parent to be a prefix of child")
	}
	if child.IsPrefixOf(parent) {
		t.Fatalf("a longer path must not be a prefix of a shorter one")
	}

	// Append must not mutate the receiver.
	if root.Len() != 0 {
		t.Fatalf("Append must not mutate its receiver, root.Len()=%d", root.Len())
	}
}

func TestActorPathString(t *testing.T) {
	p := RootPath().Append(1).Append(42)
	if got, want := p.String(), "/1/42"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if got, want := RootPath().String(), "/"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestPIDRoundTrip(t *testing.T) {
	cases := []string{
		"actor://mysystem@localhost:4242/guardian/worker-1#retry",
		"actor://mysystem@localhost/guardian/worker-1",
		"actor://sys@10.0.0.1:9000/a",
	}

	for _, s := range cases {
		pid, err := ParsePID(s)
		if err != nil {
			t.Fatalf("ParsePID(%q) failed: %v", s, err)
		}
		if got := pid.String(); got != s {
			t.Fatalf("round trip mismatch: parsed %q, rendered %q", s, got)
		}
	}
}

func TestParsePIDMissingScheme(t *testing.T) {
	_, err := ParsePID("mysystem@localhost/a")
	assertParseErrorKind(t, err, ParseErrMissingScheme)
}

func TestParsePIDMissingSystem(t *testing.T) {
	_, err := ParsePID("actor://localhost/a")
	assertParseErrorKind(t, err, ParseErrMissingSystem)

	_, err = ParsePID("actor://@localhost/a")
	assertParseErrorKind(t, err, ParseErrMissingSystem)
}

func TestParsePIDInvalidPort(t *testing.T) {
	_, err := ParsePID("actor://sys@localhost:notaport/a")
	assertParseErrorKind(t, err, ParseErrInvalidPort)
}

func TestParsePIDInvalidPathSegment(t *testing.T) {
	_, err := ParsePID("actor://sys@localhost//a")
	assertParseErrorKind(t, err, ParseErrInvalidPathSegment)
}

func assertParseErrorKind(t *testing.T, err error, want ParseErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected a ParseError of kind %v, got nil", want)
	}
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ParseError, got %T: %v", err, err)
	}
	if perr.Kind != want {
		t.Fatalf("expected kind %v, got %v", want, perr.Kind)
	}
}
