// Package mfa decodes the vendor firmware archive ("MFA") format and
// recovers the individual firmware images packed inside it. Two
// incompatible major revisions exist in the wild: a structured
// section-based format with a board map and table of contents, and an older
// format that is nothing but xz streams concatenated back-to-back. Both are
// handled, defensively, with every non-fatal anomaly surfaced to the caller
// as a diagnostic instead of being hidden or turned into an abort.
package mfa

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/apex/log"

	"github.com/Civil/bfb-extract-fw/internal/scan"
	"github.com/Civil/bfb-extract-fw/pkg/sfx"
	"github.com/Civil/bfb-extract-fw/pkg/xzstream"
)

// Kind is a container revision fingerprint.
type Kind int

const (
	KindUnknown Kind = iota
	KindStructured
	KindLegacy
)

func (k Kind) String() string {
	switch k {
	case KindStructured:
		return "structured"
	case KindLegacy:
		return "legacy"
	default:
		return "unknown"
	}
}

// legacyProbeLen bounds how far into the payload the legacy fingerprint
// looks for an xz magic.
const legacyProbeLen = 100

// Detect fingerprints a payload from its leading bytes alone. Dispatch is a
// pure function of the payload, never trial-and-error across formats.
func Detect(buf []byte) Kind {
	if bytes.HasPrefix(buf, []byte(Magic)) {
		return KindStructured
	}
	probe := buf
	if len(probe) > legacyProbeLen {
		probe = probe[:legacyProbeLen]
	}
	if scan.First(probe, xzstream.Magic, 0) >= 0 {
		return KindLegacy
	}
	return KindUnknown
}

// Extraction is the result of one extraction run.
type Extraction struct {
	Kind     Kind
	Images   []*Image
	Boards   []BoardEntry // structured revision board map
	Metadata []BoardInfo  // legacy revision metadata stream
	// TrailerOK reports the structured revision's CRC32 trailer check;
	// always false for the legacy revision, which has no trailer.
	TrailerOK bool
	Diags     Diagnostics
}

// Extract runs the whole pipeline over an opaque binary buffer: locate the
// firmware archive (the buffer may be a host executable, an OS-package
// payload, or a raw archive), fingerprint its revision, parse it, and split
// out the firmware images. Per-entry anomalies land in Diags; the run only
// fails when nothing recoverable is left.
func Extract(buf []byte) (*Extraction, error) {
	payload := buf
	if Detect(buf) == KindUnknown {
		entry, err := sfx.ExtractEntry(buf, sfx.MFAEntryName)
		if err != nil {
			if errors.Is(err, sfx.ErrEntryNotFound) {
				return nil, fmt.Errorf("%w: no archive fingerprint and no embedded %s",
					ErrUnknownContainerFormat, sfx.MFAEntryName)
			}
			return nil, err
		}
		payload = entry
	}

	kind := Detect(payload)
	log.Debugf("mfa: detected %s container (%d bytes)", kind, len(payload))
	switch kind {
	case KindStructured:
		return extractStructured(payload)
	case KindLegacy:
		return extractLegacy(payload)
	default:
		return nil, fmt.Errorf("%w: payload matches neither revision fingerprint", ErrUnknownContainerFormat)
	}
}

func extractStructured(payload []byte) (*Extraction, error) {
	c, err := ParseContainer(payload)
	if err != nil {
		return nil, err
	}
	ex := &Extraction{Kind: KindStructured, TrailerOK: c.TrailerOK, Diags: c.Diags}

	boards, err := ParseBoardMap(c.Section(SectionMap))
	if err != nil {
		ex.Diags.report(DiagCorruptSection, "MAP: %v", err)
	}
	ex.Boards = boards

	data := c.Section(SectionData)
	if data == nil {
		return ex, fmt.Errorf("%w: container has no DATA section", ErrNoImages)
	}

	toc, err := ParseToc(c.Section(SectionToc))
	if err != nil {
		ex.Diags.report(DiagCorruptSection, "TOC: %v", err)
	}
	if kept := ValidateToc(toc, len(data.Data), &ex.Diags); len(kept) > 0 {
		ex.Images = SplitToc(data.Data, kept, &ex.Diags)
	} else {
		// no usable directory: degrade to signature scanning, same as for
		// containers that never carried one
		log.Debugf("mfa: no usable TOC entries, scanning DATA section for signatures")
		ex.Images = SplitScan(data.Data, &ex.Diags)
	}
	if len(ex.Images) == 0 {
		return ex, fmt.Errorf("%w: DATA section yielded nothing", ErrNoImages)
	}
	return ex, nil
}

func extractLegacy(payload []byte) (*Extraction, error) {
	l, err := ParseLegacy(payload)
	if err != nil {
		return nil, err
	}
	ex := &Extraction{Kind: KindLegacy, Metadata: l.Boards}
	for i, s := range l.Firmware {
		imgs := SplitScan(s.Data, &ex.Diags)
		if len(imgs) == 0 {
			// no recognizable firmware in this stream: keep it whole for
			// operator inspection when it is not trivially small
			if len(s.Data) >= minRegionSize {
				ex.Diags.report(DiagUnrecognizedRegion, "stream %d (%d bytes) has no recognized signature", i+1, len(s.Data))
				ex.Images = append(ex.Images, &Image{Generation: GenUnknown, Data: s.Data})
			}
			continue
		}
		ex.Images = append(ex.Images, imgs...)
	}
	if len(ex.Images) == 0 {
		return ex, fmt.Errorf("%w: no firmware recovered from %d legacy stream(s)", ErrNoImages, len(l.Firmware))
	}
	return ex, nil
}
