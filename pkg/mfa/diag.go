package mfa

import (
	"errors"
	"fmt"

	"github.com/apex/log"
)

var (
	// ErrUnsupportedContainer means the payload is not a container revision
	// this package knows; callers may fall back to the legacy path.
	ErrUnsupportedContainer = errors.New("unsupported firmware archive container")
	// ErrUnrecognizedLegacyLayout means the payload decompressed but its
	// streams do not follow the metadata-then-firmware legacy layout.
	ErrUnrecognizedLegacyLayout = errors.New("unrecognized legacy archive layout")
	// ErrUnknownContainerFormat means neither the structured magic nor a
	// decompressible leading stream was found.
	ErrUnknownContainerFormat = errors.New("unknown container format")
	// ErrNoImages means parsing succeeded but left zero recoverable images.
	ErrNoImages = errors.New("no firmware images recovered")
)

// DiagKind classifies a non-fatal condition observed during extraction.
type DiagKind uint8

const (
	DiagChecksumMismatch DiagKind = iota + 1
	DiagDuplicateSection
	DiagCorruptSection
	DiagInconsistentToc
	DiagMalformedBoundary
	DiagOversizedImage
	DiagUnrecognizedRegion
)

func (k DiagKind) String() string {
	switch k {
	case DiagChecksumMismatch:
		return "checksum mismatch"
	case DiagDuplicateSection:
		return "duplicate section"
	case DiagCorruptSection:
		return "corrupt section"
	case DiagInconsistentToc:
		return "inconsistent TOC entry"
	case DiagMalformedBoundary:
		return "malformed image boundary"
	case DiagOversizedImage:
		return "oversized image"
	case DiagUnrecognizedRegion:
		return "unrecognized region"
	default:
		return fmt.Sprintf("diagnostic(%d)", uint8(k))
	}
}

// Diagnostic is one non-fatal condition; the caller decides whether it
// warrants a warning or an abort.
type Diagnostic struct {
	Kind   DiagKind
	Detail string
}

func (d Diagnostic) String() string {
	return d.Kind.String() + ": " + d.Detail
}

// Diagnostics accumulates non-fatal conditions in the order they were seen.
type Diagnostics []Diagnostic

func (ds *Diagnostics) report(kind DiagKind, format string, args ...any) {
	d := Diagnostic{Kind: kind, Detail: fmt.Sprintf(format, args...)}
	log.Debugf("mfa: %s", d)
	*ds = append(*ds, d)
}
