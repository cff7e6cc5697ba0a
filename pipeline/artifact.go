package pipeline

import "fmt"

// Artifact is one generated file: a stable name plus its textual content.
type Artifact struct {
	Name    string
	Content string
}

// Location points at the source of an error. It is opaque to the engine;
// token.Position satisfies it.
type Location = fmt.Stringer

// ErrorRecord is an expected, producer-reported failure.
type ErrorRecord struct {
	Message  string
	Location Location // may be nil
}

func (e ErrorRecord) String() string {
	if e.Location == nil {
		return e.Message
	}
	return e.Location.String() + ": " + e.Message
}

// SourceFile is an artifact attributed to the pair that produced it.
type SourceFile struct {
	Unit   Unit
	Target string
	Artifact
}

// UnitError is an error record attributed to the pair that produced it.
type UnitError struct {
	Unit   Unit
	Target string
	ErrorRecord
}

// Output is the append-only handle an invocation writes to. Middleware may
// wrap it; the engine supplies a per-invocation buffer.
type Output interface {
	AddArtifact(a Artifact)
	AddError(e ErrorRecord)
}
