package mfa

import (
	"encoding/hex"

	"github.com/Civil/bfb-extract-fw/internal/scan"
)

// Generation identifies a firmware image's internal format revision.
type Generation uint8

const (
	GenUnknown Generation = iota
	GenFS3
	GenFS4
	GenFS5
	GenCX8
)

func (g Generation) String() string {
	switch g {
	case GenFS3:
		return "fs3"
	case GenFS4:
		return "fs4"
	case GenFS5:
		return "fs5"
	case GenCX8:
		return "cx8"
	default:
		return "unknown"
	}
}

const (
	// MaxFirmwareSize is the largest known valid firmware image. Anything
	// bigger almost always means the splitting heuristic mis-synchronized.
	MaxFirmwareSize = 128 << 20

	// MinFirmwareSize is the smallest plausible complete firmware image;
	// callers persisting fallback-path fragments use it to skip debris.
	MinFirmwareSize = 0x10000

	// minRegionSize is how long an unrecognized byte region has to be
	// before it is worth keeping for operator inspection.
	minRegionSize = 1024
)

// magicPrefix is shared by every firmware generation; the generations are
// told apart by discriminator bytes at fixed offsets past it.
var magicPrefix = []byte("MTFW")

// discriminatorOffsets are the byte positions (from the start of the magic)
// that must match a signature's reference bytes for the family to be
// recognized. The remaining magic bytes vary per build and are not matched.
var discriminatorOffsets = [...]int{4, 16, 17}

type signature struct {
	gen   Generation
	magic []byte
}

// signatures in probe order, newest generation first.
var signatures = []signature{
	{GenCX8, mustHex("4d544657abcdef00fade12345678dead02000100ffffffff")},
	{GenFS5, mustHex("4d544657abcdef00fade12345678dead01010100ffffffff")},
	{GenFS4, mustHex("4d544657abcdef00fade12345678dead01000100ffffffff")},
	{GenFS3, mustHex("4d5446578cdfd000dead92704154beef14185411d6")},
}

func mustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

// matchSignature classifies the magic candidate at off. It returns the
// generation and the full magic length, or (GenUnknown, 0) when no known
// discriminator matches.
func matchSignature(buf []byte, off int) (Generation, int) {
	for _, sig := range signatures {
		if off+len(sig.magic) > len(buf) {
			continue
		}
		ok := true
		for _, d := range discriminatorOffsets {
			if d < len(sig.magic) && buf[off+d] != sig.magic[d] {
				ok = false
				break
			}
		}
		if ok {
			return sig.gen, len(sig.magic)
		}
	}
	return GenUnknown, 0
}

// containsMagic reports whether any recognized firmware magic occurs in buf.
func containsMagic(buf []byte) bool {
	for off := range scan.FindAll(buf, magicPrefix, 0) {
		if gen, _ := matchSignature(buf, off); gen != GenUnknown {
			return true
		}
	}
	return false
}
