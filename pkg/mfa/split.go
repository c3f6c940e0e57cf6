package mfa

import (
	"fmt"

	"github.com/apex/log"
	"github.com/dustin/go-humanize"

	"github.com/Civil/bfb-extract-fw/internal/scan"
)

// Image is one recovered firmware image, immutable once constructed.
type Image struct {
	Generation Generation
	Offset     uint64 // position of the first byte within the decoded payload
	Data       []byte
	// Oversized marks an image longer than MaxFirmwareSize. The data is
	// returned untruncated; the flag usually means the splitting heuristic
	// mis-synchronized rather than a genuinely larger firmware.
	Oversized bool
}

func (i *Image) String() string {
	return fmt.Sprintf("%s image at %#x (%s)", i.Generation, i.Offset, humanize.Bytes(uint64(len(i.Data))))
}

// SplitToc slices images out of the decoded DATA payload using validated
// TOC ranges. Entries sharing a non-zero GroupID are concatenated in TOC
// order into one image; the generation is read from each image's own
// leading magic.
func SplitToc(data []byte, entries []TocEntry, diags *Diagnostics) []*Image {
	var images []*Image
	grouped := make(map[uint8]*Image)
	for _, e := range entries {
		// full slice expression so a grouped append reallocates instead of
		// scribbling over the payload bytes that follow the chunk
		end := e.DataOffset + uint64(e.DataSize)
		chunk := data[e.DataOffset:end:end]
		if e.GroupID != 0 {
			if img, ok := grouped[e.GroupID]; ok {
				img.Data = append(img.Data, chunk...)
				continue
			}
		}
		img := &Image{Offset: e.DataOffset, Data: chunk}
		img.Generation, _ = matchSignature(img.Data, 0)
		images = append(images, img)
		if e.GroupID != 0 {
			grouped[e.GroupID] = img
		}
	}
	for _, img := range images {
		annotateOversized(img, diags)
	}
	return images
}

// SplitScan recovers images by scanning for per-generation magic signatures
// and splitting at each recognized boundary: every image runs to the next
// boundary or the end of the blob. Used when no reliable TOC exists.
func SplitScan(data []byte, diags *Diagnostics) []*Image {
	type boundary struct {
		off int
		gen Generation
		n   int
	}
	var bounds []boundary
	for off := range scan.FindAll(data, magicPrefix, 0) {
		gen, n := matchSignature(data, off)
		if gen == GenUnknown {
			continue
		}
		if len(bounds) > 0 {
			if prev := bounds[len(bounds)-1]; off < prev.off+prev.n {
				diags.report(DiagMalformedBoundary, "%s magic at %#x overlaps %s magic at %#x, discarded",
					gen, off, prev.gen, prev.off)
				continue
			}
		}
		bounds = append(bounds, boundary{off: off, gen: gen, n: n})
	}
	if len(bounds) == 0 {
		return nil
	}

	var images []*Image
	if lead := bounds[0].off; lead >= minRegionSize {
		// keep the unrecognized leading region so operators can inspect it
		diags.report(DiagUnrecognizedRegion, "%s before first signature at %#x",
			humanize.Bytes(uint64(lead)), lead)
		images = append(images, &Image{Generation: GenUnknown, Data: data[:lead]})
	} else if lead > 0 {
		log.Debugf("mfa: skipping %d byte(s) before first signature", lead)
	}

	for i, b := range bounds {
		end := len(data)
		if i+1 < len(bounds) {
			end = bounds[i+1].off
		}
		img := &Image{Generation: b.gen, Offset: uint64(b.off), Data: data[b.off:end]}
		annotateOversized(img, diags)
		images = append(images, img)
	}
	return images
}

func annotateOversized(img *Image, diags *Diagnostics) {
	if len(img.Data) > MaxFirmwareSize {
		img.Oversized = true
		diags.report(DiagOversizedImage, "%s exceeds the largest known firmware size, kept untruncated", img)
	}
}
