package mfa

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Civil/bfb-extract-fw/pkg/xzstream"
)

// ImageRef points a board at one record inside the TOC section.
type ImageRef struct {
	TocOffset uint32 // byte offset of the record within the TOC section
	ImageType uint8
	GroupID   uint8
	SelectTag string
}

// TocIndex resolves the reference to a TOC record index. ok is false when
// the offset does not land on a record boundary.
func (r ImageRef) TocIndex() (int, bool) {
	if r.TocOffset%tocRecordLen != 0 {
		return 0, false
	}
	return int(r.TocOffset / tocRecordLen), true
}

// BoardEntry maps one board identifier (PSID) to its firmware images.
type BoardEntry struct {
	PSID   string
	Images []ImageRef
}

// MAP section wire layout, big-endian. Each entry is a fixed header, then
// ImageCount image refs, then MetadataSize opaque bytes.
type boardHeader struct {
	PSID         [32]byte
	ImageCount   uint8
	_            uint8
	MetadataSize uint16
}

type imageRefRecord struct {
	TocOffset uint32
	ImageType uint8
	GroupID   uint8
	_         uint16
	SelectTag [8]byte
}

// ParseBoardMap decodes the MAP section into ordered board entries. A nil
// section yields no entries (the MAP is optional in the wild).
func ParseBoardMap(sec *Section) ([]BoardEntry, error) {
	if sec == nil {
		return nil, nil
	}
	r := bytes.NewReader(sec.Data)
	var boards []BoardEntry
	for r.Len() > 0 {
		var hdr boardHeader
		if err := binary.Read(r, binary.BigEndian, &hdr); err != nil {
			return boards, fmt.Errorf("%w: truncated board entry %d in MAP section", xzstream.ErrCorruptStream, len(boards))
		}
		b := BoardEntry{PSID: cstr(hdr.PSID[:])}
		for range int(hdr.ImageCount) {
			var rec imageRefRecord
			if err := binary.Read(r, binary.BigEndian, &rec); err != nil {
				return boards, fmt.Errorf("%w: truncated image ref for board %s", xzstream.ErrCorruptStream, b.PSID)
			}
			b.Images = append(b.Images, ImageRef{
				TocOffset: rec.TocOffset,
				ImageType: rec.ImageType,
				GroupID:   rec.GroupID,
				SelectTag: cstr(rec.SelectTag[:]),
			})
		}
		if _, err := io.CopyN(io.Discard, r, int64(hdr.MetadataSize)); err != nil {
			return boards, fmt.Errorf("%w: truncated metadata for board %s", xzstream.ErrCorruptStream, b.PSID)
		}
		boards = append(boards, b)
	}
	return boards, nil
}

func cstr(b []byte) string {
	return string(bytes.TrimRight(b, "\x00"))
}
