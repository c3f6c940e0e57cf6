package mfa

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/Civil/bfb-extract-fw/pkg/xzstream"
)

// SubImageType classifies what a TOC entry's data range carries.
type SubImageType uint8

const (
	SubImageFW   SubImageType = 1
	SubImagePXE  SubImageType = 2
	SubImageUEFI SubImageType = 3
)

func (t SubImageType) String() string {
	switch t {
	case SubImageFW:
		return "FW"
	case SubImagePXE:
		return "PXE"
	case SubImageUEFI:
		return "UEFI"
	default:
		return fmt.Sprintf("subimage(%d)", uint8(t))
	}
}

// TocEntry is one table-of-contents record: a data range inside the DATA
// section plus identity fields. Entries sharing a non-zero GroupID form one
// logical multi-part image, concatenated in TOC order.
type TocEntry struct {
	DataOffset   uint64
	DataSize     uint32
	SubType      SubImageType
	GroupID      uint8
	Version      [4]uint16
	MetadataSize uint16
}

func (e TocEntry) String() string {
	return fmt.Sprintf("%s %#x-%#x group=%d ver=%d.%d.%d",
		e.SubType, e.DataOffset, e.DataOffset+uint64(e.DataSize), e.GroupID,
		e.Version[0], e.Version[1], e.Version[2])
}

// TOC section wire layout, big-endian. The 48-bit data offset is split into
// a low u32 and a high u16 extension so containers past 4 GiB still index.
type tocRecord struct {
	OffsetLo     uint32
	DataSize     uint32
	SubType      uint8
	GroupID      uint8
	OffsetHi     uint16
	Version      [4]uint16
	MetadataSize uint16
	_            uint16
}

const tocRecordLen = 24

// ParseToc decodes the TOC section into ordered entries. A nil section
// yields no entries.
func ParseToc(sec *Section) ([]TocEntry, error) {
	if sec == nil {
		return nil, nil
	}
	if len(sec.Data)%tocRecordLen != 0 {
		return nil, fmt.Errorf("%w: TOC section length %d is not a multiple of %d",
			xzstream.ErrCorruptStream, len(sec.Data), tocRecordLen)
	}
	r := bytes.NewReader(sec.Data)
	entries := make([]TocEntry, 0, len(sec.Data)/tocRecordLen)
	for r.Len() > 0 {
		var rec tocRecord
		if err := binary.Read(r, binary.BigEndian, &rec); err != nil {
			return entries, fmt.Errorf("%w: truncated TOC record %d", xzstream.ErrCorruptStream, len(entries))
		}
		entries = append(entries, TocEntry{
			DataOffset:   uint64(rec.OffsetHi)<<32 | uint64(rec.OffsetLo),
			DataSize:     rec.DataSize,
			SubType:      SubImageType(rec.SubType),
			GroupID:      rec.GroupID,
			Version:      rec.Version,
			MetadataSize: rec.MetadataSize,
		})
	}
	return entries, nil
}

// ValidateToc drops entries whose data range falls outside the DATA
// section's decompressed length, recording each as a per-entry diagnostic.
// An out-of-range entry is never fatal to the rest of the table.
func ValidateToc(entries []TocEntry, dataLen int, diags *Diagnostics) []TocEntry {
	kept := entries[:0:0]
	for i, e := range entries {
		if e.DataOffset+uint64(e.DataSize) > uint64(dataLen) {
			diags.report(DiagInconsistentToc, "entry %d (%s) exceeds DATA section length %s",
				i, e, humanize.Bytes(uint64(dataLen)))
			continue
		}
		kept = append(kept, e)
	}
	return kept
}
