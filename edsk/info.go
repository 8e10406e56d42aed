// Package edsk implements the Extended-DSK disc image codec described in
// spec section 4.6: a 256-byte disc info block, followed by one
// variable-length track block per physical track, each holding a
// 256-byte track header and its sectors' payloads. Grounded on the
// byte-offset tables in cpclib-disc/src/edsk.rs (original_source/) and,
// for the manual encoding/binary-style offset bookkeeping, on
// gmofishsauce/wut4/lang/yld/reader.go and linker.go.
package edsk

import (
	"bytes"
	"fmt"

	"github.com/gmofishsauce/cpcasm/diag"
)

const (
	discInfoSignature  = "EXTENDED CPC DSK File\r\nDisk-Info\r\n"
	trackInfoSignature = "Track-Info\r\n"

	discInfoSize    = 256
	trackHeaderSize = 256

	creatorNameOffset = 0x22
	creatorNameLength = 14
	numberOfTracksOff = 0x30
	numberOfHeadsOff  = 0x31
	trackSizeTableOff = 0x34
)

// discInfo is the 256-byte disc information block (spec 4.6 "Read", first
// paragraph).
type discInfo struct {
	creatorName    string
	numberOfTracks byte
	numberOfHeads  byte
	trackSizeTable []byte // one byte per track*head, units of 256 bytes
}

func parseDiscInfo(buf []byte) (*discInfo, error) {
	if len(buf) < discInfoSize {
		return nil, diag.Container("disc info block truncated: need %d bytes, have %d", discInfoSize, len(buf))
	}
	if !bytes.EqualFold(buf[:len(discInfoSignature)], []byte(discInfoSignature)) {
		return nil, diag.Container("not an EDSK image: bad disc info signature")
	}

	tracks := buf[numberOfTracksOff]
	heads := buf[numberOfHeadsOff]
	if heads != 1 && heads != 2 {
		return nil, diag.Container("disc info: invalid head count %d", heads)
	}
	n := int(tracks) * int(heads)
	end := trackSizeTableOff + n
	if end > discInfoSize {
		return nil, diag.Container("disc info: track size table (%d entries) overruns the info block", n)
	}

	return &discInfo{
		creatorName:    trimCString(buf[creatorNameOffset : creatorNameOffset+creatorNameLength]),
		numberOfTracks: tracks,
		numberOfHeads:  heads,
		trackSizeTable: append([]byte(nil), buf[trackSizeTableOff:end]...),
	}, nil
}

func trimCString(b []byte) string {
	i := bytes.IndexByte(b, 0)
	if i < 0 {
		i = len(b)
	}
	return string(bytes.TrimRight(b[:i], " "))
}

func (d *discInfo) toBytes() []byte {
	buf := make([]byte, 0, discInfoSize)
	buf = append(buf, []byte(discInfoSignature)...)

	name := make([]byte, creatorNameLength)
	copy(name, d.creatorName)
	buf = append(buf, name...)

	buf = append(buf, d.numberOfTracks, d.numberOfHeads)
	buf = append(buf, 0, 0) // unused size-of-one-track field, not used by eDSK readers
	buf = append(buf, d.trackSizeTable...)

	if len(buf) > discInfoSize {
		panic(fmt.Sprintf("edsk: disc info block overflowed %d bytes", discInfoSize))
	}
	for len(buf) < discInfoSize {
		buf = append(buf, 0)
	}
	return buf
}

func (d *discInfo) isDoubleHead() bool { return d.numberOfHeads == 2 }

// trackLengthAt returns the full on-disc length (header + data, bytes) of
// the track*head entry at idx, per the track size table.
func (d *discInfo) trackLengthAt(idx int) uint16 {
	return 256 * uint16(d.trackSizeTable[idx])
}
