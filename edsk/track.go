package edsk

import (
	"bytes"

	"github.com/gmofishsauce/cpcasm/diag"
)

const (
	trackNumberOff     = 0x10
	headNumberOff      = 0x11
	dataRateOff        = 0x12
	recordingModeOff   = 0x13
	sectorSizeOff      = 0x14
	numberOfSectorsOff = 0x15
	gap3LengthOff      = 0x16
	fillerByteOff      = 0x17
	sectorInfoListOff  = 0x18
)

// DataRate and RecordingMode mirror the two FDC-describing extension
// bytes stored in a track header (spec 4.6); neither affects decoding,
// they are carried through unchanged for round-tripping.
type DataRate byte

const (
	DataRateUnknown DataRate = iota
	DataRateSingleOrDouble
	DataRateHigh
	DataRateExtended
)

type RecordingMode byte

const (
	RecordingModeUnknown RecordingMode = iota
	RecordingModeFM
	RecordingModeMFM
)

// Track is one track's header fields plus its ordered sectors.
type Track struct {
	TrackNumber   byte
	HeadNumber    byte
	DataRate      DataRate
	RecordingMode RecordingMode
	SectorSize    byte
	Gap3Length    byte
	FillerByte    byte
	Sectors       []*Sector
}

func parseTrack(buf []byte) (*Track, error) {
	if len(buf) < sectorInfoListOff || !bytes.EqualFold(buf[:len(trackInfoSignature)], []byte(trackInfoSignature)) {
		return nil, diag.Container("track block missing Track-Info signature")
	}

	t := &Track{
		TrackNumber:   buf[trackNumberOff],
		HeadNumber:    buf[headNumberOff],
		DataRate:      DataRate(buf[dataRateOff]),
		RecordingMode: RecordingMode(buf[recordingModeOff]),
		SectorSize:    buf[sectorSizeOff],
		Gap3Length:    buf[gap3LengthOff],
		FillerByte:    buf[fillerByteOff],
	}
	numSectors := int(buf[numberOfSectorsOff])

	infoRecords := make([]SectorInfo, numSectors)
	for i := 0; i < numSectors; i++ {
		start := sectorInfoListOff + i*sectorInfoRecordSize
		if start+sectorInfoRecordSize > len(buf) {
			return nil, diag.Container("track %d head %d: sector info list overruns track header", t.TrackNumber, t.HeadNumber)
		}
		infoRecords[i] = parseSectorInfo(buf[start : start+sectorInfoRecordSize])
	}

	// Sector payloads start at the 256-byte boundary following the
	// header, in sector-info order, each data_length bytes long (spec
	// 4.6, "Sector data follows contiguously, starting at offset 0x100").
	pos := trackHeaderSize
	t.Sectors = make([]*Sector, numSectors)
	for i, info := range infoRecords {
		end := pos + int(info.DataLength)
		if end > len(buf) {
			return nil, diag.Container("track %d head %d: sector %d data overruns track block", t.TrackNumber, t.HeadNumber, info.SectorID)
		}
		values := append([]byte(nil), buf[pos:end]...)
		t.Sectors[i] = &Sector{Info: info, Values: values}
		pos = end
	}

	return t, nil
}

// toBytes serializes the track's 256-byte header (padded, with packed
// sector-info records) followed by sector payloads in sector order,
// padded to the next 256-byte boundary (spec 4.6 "Write").
func (t *Track) toBytes() []byte {
	header := make([]byte, 0, trackHeaderSize)
	header = append(header, []byte(trackInfoSignature)...)
	header = append(header, 0, 0, 0, 0) // unused
	header = append(header, t.TrackNumber, t.HeadNumber)
	header = append(header, byte(t.DataRate), byte(t.RecordingMode))
	header = append(header, t.SectorSize, byte(len(t.Sectors)), t.Gap3Length, t.FillerByte)
	for _, s := range t.Sectors {
		rec := s.Info.toBytes()
		header = append(header, rec[:]...)
	}
	for len(header) < trackHeaderSize {
		header = append(header, 0)
	}

	out := header
	for _, s := range t.Sectors {
		out = append(out, s.Values...)
	}
	for len(out)%trackHeaderSize != 0 {
		out = append(out, 0)
	}
	return out
}

func (t *Track) sector(id byte) *Sector {
	for _, s := range t.Sectors {
		if s.Info.SectorID == id {
			return s
		}
	}
	return nil
}

func (t *Track) minSectorID() (byte, bool) {
	if len(t.Sectors) == 0 {
		return 0, false
	}
	min := t.Sectors[0].Info.SectorID
	for _, s := range t.Sectors[1:] {
		if s.Info.SectorID < min {
			min = s.Info.SectorID
		}
	}
	return min, true
}

// nextSectorID returns the sector following id in this track's
// sector-info order (not numeric order; CPC interleaves sector IDs).
func (t *Track) nextSectorID(id byte) (byte, bool) {
	for i, s := range t.Sectors {
		if s.Info.SectorID == id && i+1 < len(t.Sectors) {
			return t.Sectors[i+1].Info.SectorID, true
		}
	}
	return 0, false
}
