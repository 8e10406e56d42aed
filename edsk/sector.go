package edsk

import "github.com/gmofishsauce/cpcasm/diag"

const sectorInfoRecordSize = 8

// SectorInfo mirrors the NEC765 FDC result-phase fields that the EDSK
// format stores for each sector (spec 4.6, track block layout).
type SectorInfo struct {
	Track      byte
	Head       byte
	SectorID   byte
	SectorSize byte // N parameter; real size is 0x80 << N
	Status1    byte
	Status2    byte
	DataLength uint16
}

// Sector is one sector's info record plus its payload bytes.
type Sector struct {
	Info   SectorInfo
	Values []byte
}

func parseSectorInfo(buf []byte) SectorInfo {
	return SectorInfo{
		Track:      buf[0],
		Head:       buf[1],
		SectorID:   buf[2],
		SectorSize: buf[3],
		Status1:    buf[4],
		Status2:    buf[5],
		DataLength: uint16(buf[6]) | uint16(buf[7])<<8,
	}
}

func (s SectorInfo) toBytes() [sectorInfoRecordSize]byte {
	var b [sectorInfoRecordSize]byte
	b[0] = s.Track
	b[1] = s.Head
	b[2] = s.SectorID
	b[3] = s.SectorSize
	b[4] = s.Status1
	b[5] = s.Status2
	b[6] = byte(s.DataLength)
	b[7] = byte(s.DataLength >> 8)
	return b
}

// SetValues overwrites the sector's payload. data must be exactly as
// long as the sector's declared data length (spec 4.6 "set_values").
func (s *Sector) SetValues(data []byte) error {
	if len(data) != len(s.Values) {
		return diag.Container("sector %d: cannot set %d bytes into a %d-byte sector", s.Info.SectorID, len(data), len(s.Values))
	}
	copy(s.Values, data)
	return nil
}
