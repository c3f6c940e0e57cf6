package mfa

import (
	"bytes"
	"fmt"
	"io"
	"regexp"

	"github.com/apex/log"

	"github.com/Civil/bfb-extract-fw/internal/scan"
	"github.com/Civil/bfb-extract-fw/pkg/xzstream"
)

// BoardInfo is one board-id record from a legacy container's metadata
// stream. The structured revision carries this in the MAP section instead.
type BoardInfo struct {
	PSID        string
	Description string
	Version     string
}

// Legacy is a parsed pre-structured container: a leading metadata stream
// followed by firmware-bearing streams with no directory of any kind.
type Legacy struct {
	Boards   []BoardInfo
	Firmware []*xzstream.Stream
}

// Board-id records are newline-delimited with NUL-delimited fields:
// PSID, description, optional version. PSIDs look like MT_0000000515.
var psidRE = regexp.MustCompile(`^[A-Z0-9]{2,8}_[0-9]{4,16}$`)

// ParseLegacy decodes the concatenated-stream revision. The streams begin
// at the first xz magic inside the fingerprint window, so a few leading
// pad bytes are fine. The first stream must parse as board metadata and at
// least one later stream must carry a recognizable firmware magic;
// anything else fails rather than guessing. A decode failure past the
// first stream only truncates the walk, keeping the streams already
// recovered.
func ParseLegacy(payload []byte) (*Legacy, error) {
	probe := payload
	if len(probe) > legacyProbeLen {
		probe = probe[:legacyProbeLen]
	}
	start := scan.First(probe, xzstream.Magic, 0)
	if start < 0 {
		return nil, fmt.Errorf("%w: no xz stream in the leading %d bytes", ErrUnrecognizedLegacyLayout, legacyProbeLen)
	}
	dec := xzstream.NewDecoder(payload, start)

	first, err := dec.Next()
	if err != nil {
		return nil, fmt.Errorf("failed to decompress leading stream: %w", err)
	}
	boards, err := parseBoardInfo(first.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnrecognizedLegacyLayout, err)
	}
	log.Debugf("mfa: legacy metadata stream has %d board record(s)", len(boards))

	l := &Legacy{Boards: boards}
	sawMagic := false
	for {
		s, err := dec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.WithError(err).Warnf("mfa: stopping legacy walk after %d firmware stream(s)", len(l.Firmware))
			break
		}
		if containsMagic(s.Data) {
			sawMagic = true
		}
		l.Firmware = append(l.Firmware, s)
	}
	if !sawMagic {
		return nil, fmt.Errorf("%w: no firmware magic in any of %d stream(s)", ErrUnrecognizedLegacyLayout, len(l.Firmware))
	}
	return l, nil
}

func parseBoardInfo(data []byte) ([]BoardInfo, error) {
	var boards []BoardInfo
	for i, line := range bytes.Split(data, []byte{'\n'}) {
		if len(line) == 0 {
			continue
		}
		fields := bytes.Split(line, []byte{0})
		if len(fields) < 2 || !psidRE.Match(fields[0]) {
			return nil, fmt.Errorf("leading stream is not board metadata (record %d)", i)
		}
		b := BoardInfo{PSID: string(fields[0]), Description: string(fields[1])}
		if len(fields) > 2 {
			b.Version = string(fields[2])
		}
		boards = append(boards, b)
	}
	if len(boards) == 0 {
		return nil, fmt.Errorf("leading stream has no board records")
	}
	return boards, nil
}
