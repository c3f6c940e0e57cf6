package mfa

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/apex/log"
	"github.com/dustin/go-humanize"

	"github.com/Civil/bfb-extract-fw/pkg/xzstream"
)

const (
	// Magic opens every structured firmware archive.
	Magic = "MFAR"
	// Version is the only structured container revision observed in
	// sampled inputs; anything else fails hard rather than misparsing.
	Version = 1

	headerLen        = 16
	sectionHeaderLen = 8
	trailerLen       = 4
)

// SectionType identifies a section's role inside the container.
type SectionType uint8

const (
	SectionMap  SectionType = 1
	SectionToc  SectionType = 2
	SectionData SectionType = 3
)

func (t SectionType) String() string {
	switch t {
	case SectionMap:
		return "MAP"
	case SectionToc:
		return "TOC"
	case SectionData:
		return "DATA"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

const flagXZCompressed = 0x01

// Section is one framed container section. Data holds the decompressed body
// when the xz flag was set, the raw body otherwise.
type Section struct {
	Type    SectionType
	Flags   uint8
	RawSize uint32
	Data    []byte
}

// Compressed reports whether the section body was stored xz-compressed.
func (s *Section) Compressed() bool {
	return s.Flags&flagXZCompressed != 0
}

func (s *Section) String() string {
	return fmt.Sprintf("%s section (%s raw, %s decoded)",
		s.Type, humanize.Bytes(uint64(s.RawSize)), humanize.Bytes(uint64(len(s.Data))))
}

// Container is a parsed structured firmware archive.
type Container struct {
	Version   uint32
	Sections  []*Section
	TrailerOK bool
	Diags     Diagnostics
}

// Section returns the first section of the given type, or nil. Sections are
// expected zero or one times per type; duplicates are recorded as
// diagnostics at parse time and never consulted.
func (c *Container) Section(t SectionType) *Section {
	for _, s := range c.Sections {
		if s.Type == t {
			return s
		}
	}
	return nil
}

// ParseContainer decodes the structured container framing: a 16-byte
// magic/version header, a run of 8-byte section headers with their bodies,
// and a 4-byte CRC32 trailer over everything preceding it. A checksum
// mismatch is reported through Diags and TrailerOK but does not discard the
// parsed sections; the caller decides whether to trust them.
func ParseContainer(buf []byte) (*Container, error) {
	if len(buf) < headerLen+trailerLen {
		return nil, fmt.Errorf("%w: %d bytes is too small for a container", ErrUnsupportedContainer, len(buf))
	}
	if !bytes.HasPrefix(buf, []byte(Magic)) {
		return nil, fmt.Errorf("%w: bad magic %q", ErrUnsupportedContainer, buf[:4])
	}
	version := binary.BigEndian.Uint32(buf[4:8])
	if version != Version {
		return nil, fmt.Errorf("%w: version %#x", ErrUnsupportedContainer, version)
	}

	c := &Container{Version: version}
	end := len(buf) - trailerLen
	off := headerLen
	for off+sectionHeaderLen <= end {
		typ := SectionType(buf[off])
		flags := buf[off+3]
		size := int(binary.BigEndian.Uint32(buf[off+4 : off+8]))
		body := off + sectionHeaderLen
		if size > end-body {
			return nil, fmt.Errorf("%w: %s section of %s at %#x extends past the container end",
				xzstream.ErrCorruptStream, typ, humanize.Bytes(uint64(size)), off)
		}

		sec := &Section{Type: typ, Flags: flags, RawSize: uint32(size), Data: buf[body : body+size]}
		if sec.Compressed() {
			data, _, err := xzstream.DecompressOne(sec.Data, 0)
			if err != nil {
				return nil, fmt.Errorf("failed to decompress %s section at %#x: %w", typ, off, err)
			}
			sec.Data = data
		}
		log.Debugf("mfa: parsed %s at %#x", sec, off)

		if c.Section(typ) != nil {
			c.Diags.report(DiagDuplicateSection, "second %s section at %#x ignored", typ, off)
		}
		c.Sections = append(c.Sections, sec)
		off = body + size
	}

	stored := binary.LittleEndian.Uint32(buf[len(buf)-trailerLen:])
	calc := crc32.ChecksumIEEE(buf[:len(buf)-trailerLen])
	c.TrailerOK = stored == calc
	if !c.TrailerOK {
		c.Diags.report(DiagChecksumMismatch, "stored %#08x, calculated %#08x", stored, calc)
	}
	return c, nil
}
