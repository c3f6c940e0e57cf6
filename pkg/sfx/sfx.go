// Package sfx pulls named zip entries out of self-extracting host binaries.
// Vendor firmware managers embed a regular zip archive at an arbitrary,
// version-dependent offset inside the executable, so the whole buffer is
// scanned for zip signatures rather than trusting any fixed layout.
package sfx

import (
	"archive/zip"
	"bytes"
	"io"

	"github.com/apex/log"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/Civil/bfb-extract-fw/internal/scan"
)

// MFAEntryName is the conventional name of the firmware archive inside the
// vendor's self-extracting binaries.
const MFAEntryName = "srcs.mfa"

// ErrEntryNotFound means no structurally valid embedded archive contained
// the requested entry.
var ErrEntryNotFound = errors.New("entry not found in any embedded archive")

var zipMagic = []byte("PK\x03\x04")

// ExtractEntry scans buf for embedded zip archives and returns the contents
// of the first entry with the given name from the first archive that parses
// cleanly. Truncated or duplicate signatures coming from the host binary's
// own padding are skipped, never fatal.
func ExtractEntry(buf []byte, name string) ([]byte, error) {
	for off := range scan.FindAll(buf, zipMagic, 0) {
		tail := buf[off:]
		zr, err := zip.NewReader(bytes.NewReader(tail), int64(len(tail)))
		if err != nil {
			log.Debugf("sfx: skipping zip candidate at %#x: %v", off, err)
			continue
		}
		for _, f := range zr.File {
			if f.Name != name {
				continue
			}
			rc, err := f.Open()
			if err != nil {
				return nil, errors.Wrapf(err, "failed to open %s in archive at %#x", name, off)
			}
			data, err := io.ReadAll(rc)
			rc.Close()
			if err != nil {
				return nil, errors.Wrapf(err, "failed to read %s in archive at %#x", name, off)
			}
			log.Debugf("sfx: found %s (%s) in archive at %#x", name, humanize.Bytes(uint64(len(data))), off)
			return data, nil
		}
		log.Debugf("sfx: archive at %#x has no %s entry", off, name)
	}
	return nil, ErrEntryNotFound
}
