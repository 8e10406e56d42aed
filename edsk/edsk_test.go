package edsk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gmofishsauce/cpcasm/diag"
)

// TestMinimalDiscRoundTrip is spec section 8 scenario 7: a 256-byte info
// block declaring 0 tracks, 1 head, empty track-size table round-trips
// to an empty track list and an identical byte image.
func TestMinimalDiscRoundTrip(t *testing.T) {
	raw := make([]byte, 256)
	copy(raw, discInfoSignature)
	raw[numberOfTracksOff] = 0
	raw[numberOfHeadsOff] = 1

	d, err := Read(raw)
	require.NoError(t, err)
	require.Empty(t, d.Tracks)
	require.Equal(t, raw, d.ToBytes())
}

func buildSingleSectorDisc() *Disc {
	info := &discInfo{
		creatorName:    "cpcasm",
		numberOfTracks: 1,
		numberOfHeads:  1,
		trackSizeTable: []byte{1}, // placeholder; ToBytes recomputes it from the track (header + one 512-byte sector)
	}
	sector := &Sector{
		Info: SectorInfo{
			Track: 0, Head: 0, SectorID: 0xC1, SectorSize: 2,
			DataLength: 512,
		},
		Values: make([]byte, 512),
	}
	for i := range sector.Values {
		sector.Values[i] = 0xE5
	}
	track := &Track{
		TrackNumber: 0,
		HeadNumber:  0,
		SectorSize:  2,
		Gap3Length:  0x4E,
		FillerByte:  0xE5,
		Sectors:     []*Sector{sector},
	}
	return &Disc{info: info, Tracks: []*Track{track}}
}

func TestTrackAndSectorRoundTrip(t *testing.T) {
	d := buildSingleSectorDisc()
	wire := d.ToBytes()

	decoded, err := Read(wire)
	require.NoError(t, err)
	require.Len(t, decoded.Tracks, 1)
	require.Len(t, decoded.Tracks[0].Sectors, 1)

	s, ok := decoded.Sector(0, 0, 0xC1)
	require.True(t, ok)
	require.Equal(t, 512, len(s.Values))
	require.Equal(t, byte(0xE5), s.Values[0])
	require.Equal(t, wire, decoded.ToBytes())
}

func TestSectorWrite(t *testing.T) {
	d := buildSingleSectorDisc()
	data := make([]byte, 512)
	for i := range data {
		data[i] = byte(i)
	}
	require.NoError(t, d.SectorWrite(0, 0, 0xC1, data))

	s, ok := d.Sector(0, 0, 0xC1)
	require.True(t, ok)
	require.Equal(t, data, s.Values)

	require.Error(t, d.SectorWrite(0, 0, 0xC1, data[:10]))
	require.Error(t, d.SectorWrite(1, 0, 0xC1, data))
}

func buildTwoSectorTrackDisc() *Disc {
	mkSector := func(id byte) *Sector {
		v := make([]byte, 256)
		return &Sector{Info: SectorInfo{Track: 0, Head: 0, SectorID: id, SectorSize: 1, DataLength: 256}, Values: v}
	}
	track0 := &Track{TrackNumber: 0, HeadNumber: 0, SectorSize: 1, Sectors: []*Sector{mkSector(0xC1), mkSector(0xC2)}}
	mkSector2 := func(id byte) *Sector {
		v := make([]byte, 256)
		return &Sector{Info: SectorInfo{Track: 1, Head: 0, SectorID: id, SectorSize: 1, DataLength: 256}, Values: v}
	}
	track1 := &Track{TrackNumber: 1, HeadNumber: 0, SectorSize: 1, Sectors: []*Sector{mkSector2(0xC1), mkSector2(0xC2)}}
	info := &discInfo{creatorName: "cpcasm", numberOfTracks: 2, numberOfHeads: 1, trackSizeTable: []byte{2, 2}}
	return &Disc{info: info, Tracks: []*Track{track0, track1}}
}

func TestNextPositionWithinAndAcrossTracks(t *testing.T) {
	d := buildTwoSectorTrackDisc()

	h, tr, id, ok := d.NextPosition(0, 0, 0xC1)
	require.True(t, ok)
	require.Equal(t, byte(0), h)
	require.Equal(t, byte(0), tr)
	require.Equal(t, byte(0xC2), id)

	h, tr, id, ok = d.NextPosition(0, 0, 0xC2)
	require.True(t, ok)
	require.Equal(t, byte(0), h)
	require.Equal(t, byte(1), tr)
	require.Equal(t, byte(0xC1), id)

	_, _, _, ok = d.NextPosition(0, 1, 0xC2)
	require.False(t, ok)
}

func TestAddFileSequentially(t *testing.T) {
	d := buildTwoSectorTrackDisc()
	data := make([]byte, 256*3)
	for i := range data {
		data[i] = byte(i)
	}

	h, tr, id, err := d.AddFileSequentially(0, 0, 0xC1, data)
	require.NoError(t, err)
	require.Equal(t, byte(0), h)
	require.Equal(t, byte(1), tr)
	require.Equal(t, byte(0xC1), id)

	s1, _ := d.Sector(0, 0, 0xC1)
	s2, _ := d.Sector(0, 0, 0xC2)
	s3, _ := d.Sector(0, 1, 0xC1)
	require.Equal(t, data[0:256], s1.Values)
	require.Equal(t, data[256:512], s2.Values)
	require.Equal(t, data[512:768], s3.Values)

	_, _, _, err = d.AddFileSequentially(0, 0, 0xC1, make([]byte, 256*10))
	require.Error(t, err)
}

func TestReadContextCancellation(t *testing.T) {
	d := buildSingleSectorDisc()
	raw := d.ToBytes()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ReadContext(ctx, raw)
	require.Error(t, err)
	de, ok := err.(*diag.Error)
	require.True(t, ok)
	require.Equal(t, diag.KindCancelled, de.Kind)
}

func TestValidateRejectsDuplicateSectorIDs(t *testing.T) {
	d := buildSingleSectorDisc()
	require.NoError(t, d.Validate())

	dup := &Sector{Info: d.Tracks[0].Sectors[0].Info, Values: make([]byte, 512)}
	d.Tracks[0].Sectors = append(d.Tracks[0].Sectors, dup)
	require.Error(t, d.Validate())
}

func TestValidateRejectsHeadBTrackOnSingleHeadDisc(t *testing.T) {
	d := buildSingleSectorDisc()
	d.Tracks[0].HeadNumber = 1
	require.Error(t, d.Validate())
}

func TestAddFileSequentiallyPadsFinalPartialSector(t *testing.T) {
	d := buildTwoSectorTrackDisc()
	data := make([]byte, 300)
	for i := range data {
		data[i] = 0x5A
	}
	h, tr, id, err := d.AddFileSequentially(0, 0, 0xC1, data)
	require.NoError(t, err)
	require.Equal(t, byte(0), h)
	require.Equal(t, byte(0), tr)
	require.Equal(t, byte(0xC2), id)

	s2, _ := d.Sector(0, 0, 0xC2)
	require.Equal(t, byte(0x5A), s2.Values[300-256-1])
	require.Equal(t, byte(0x00), s2.Values[300-256])
}
