package edsk

import (
	"context"

	"github.com/gmofishsauce/cpcasm/diag"
)

// Disc is a decoded EDSK image: the disc info block plus the ordered
// list of tracks it describes (spec 4.6, spec 6.3's Disc).
type Disc struct {
	info   *discInfo
	Tracks []*Track
}

// Read decodes an EDSK image (spec 6.3 read).
func Read(data []byte) (*Disc, error) {
	return ReadContext(context.Background(), data)
}

// ReadContext is Read with cooperative cancellation, polled between
// tracks; on cancellation the partial disc is discarded.
func ReadContext(ctx context.Context, data []byte) (*Disc, error) {
	info, err := parseDiscInfo(data)
	if err != nil {
		return nil, err
	}

	d := &Disc{info: info}
	pos := discInfoSize
	n := int(info.numberOfTracks) * int(info.numberOfHeads)
	for idx := 0; idx < n; idx++ {
		if ctx.Err() != nil {
			return nil, diag.Cancelled
		}
		size := int(info.trackLengthAt(idx))
		if size == 0 {
			d.Tracks = append(d.Tracks, nil) // unformatted
			continue
		}
		if pos+size > len(data) {
			return nil, diag.Container("track index %d: image truncated before declared track size", idx)
		}
		t, err := parseTrack(data[pos : pos+size])
		if err != nil {
			return nil, err
		}
		d.Tracks = append(d.Tracks, t)
		pos += size
	}
	return d, nil
}

// ToBytes re-serializes the disc info block followed by every track
// (spec 6.3 disc.to_bytes). Track sizes in the info block are recomputed
// from each track's actual serialized length so edits that change a
// sector's data length stay consistent (spec 4.6 "Write").
func (d *Disc) ToBytes() []byte {
	sizes := make([]byte, len(d.Tracks))
	trackBytes := make([][]byte, len(d.Tracks))
	for i, t := range d.Tracks {
		if t == nil {
			sizes[i] = 0
			continue
		}
		tb := t.toBytes()
		trackBytes[i] = tb
		sizes[i] = byte(len(tb) / trackHeaderSize)
	}
	d.info.trackSizeTable = sizes

	out := append([]byte(nil), d.info.toBytes()...)
	for _, tb := range trackBytes {
		out = append(out, tb...)
	}
	return out
}

// trackIndex maps a (head, track) pair to its position in d.Tracks,
// matching the on-disc interleaving: single-headed discs store tracks
// in order, double-headed discs alternate H0,T0 / H1,T0 / H0,T1 / ...
func (d *Disc) trackIndex(head, track byte) int {
	if d.info.isDoubleHead() {
		return int(track)*2 + int(head)
	}
	return int(track)
}

func (d *Disc) trackAt(head, track byte) *Track {
	if head > 1 || (head != 0 && !d.info.isDoubleHead()) {
		return nil
	}
	idx := d.trackIndex(head, track)
	if idx < 0 || idx >= len(d.Tracks) {
		return nil
	}
	return d.Tracks[idx]
}

// Sector looks up the sector with the given ID on the given track/head
// (spec 6.3 disc.sector).
func (d *Disc) Sector(head, track, id byte) (*Sector, bool) {
	t := d.trackAt(head, track)
	if t == nil {
		return nil, false
	}
	s := t.sector(id)
	if s == nil {
		return nil, false
	}
	return s, true
}

// SectorWrite overwrites a sector's payload in place (spec 6.3
// disc.sector_write).
func (d *Disc) SectorWrite(head, track, id byte, data []byte) error {
	s, ok := d.Sector(head, track, id)
	if !ok {
		return diag.Container("head %d track %d sector %d: not found", head, track, id)
	}
	return s.SetValues(data)
}

// Validate checks the structural invariants a write must respect:
// no duplicate sector IDs within a track, single-head discs carrying no
// head-B tracks, and every sector payload matching its declared data
// length (spec 3.8, spec 7's container errors).
func (d *Disc) Validate() error {
	for i, t := range d.Tracks {
		if t == nil {
			continue
		}
		if !d.info.isDoubleHead() && t.HeadNumber != 0 {
			return diag.Container("track index %d: head-B track on a single-head disc", i)
		}
		seen := map[byte]bool{}
		for _, s := range t.Sectors {
			if seen[s.Info.SectorID] {
				return diag.Container("track index %d: duplicate sector ID %d", i, s.Info.SectorID)
			}
			seen[s.Info.SectorID] = true
			if len(s.Values) != int(s.Info.DataLength) {
				return diag.Container("track index %d sector %d: payload is %d bytes, declared %d", i, s.Info.SectorID, len(s.Values), s.Info.DataLength)
			}
		}
	}
	return nil
}

// NextPosition returns the next logical sector position after
// (head, track, id): the following sector on the same track in
// sector-info order, or the lowest-ID sector of the next track if this
// one is exhausted (spec 6.3 disc.next_position, spec 4.6).
func (d *Disc) NextPosition(head, track, id byte) (nextHead, nextTrack, nextID byte, ok bool) {
	t := d.trackAt(head, track)
	if t == nil {
		return 0, 0, 0, false
	}
	if next, ok := t.nextSectorID(id); ok {
		return head, track, next, true
	}

	idx := d.trackIndex(head, track)
	for i := idx + 1; i < len(d.Tracks); i++ {
		nt := d.Tracks[i]
		if nt == nil {
			continue
		}
		if min, ok := nt.minSectorID(); ok {
			return nt.HeadNumber, nt.TrackNumber, min, true
		}
	}
	return 0, 0, 0, false
}

// AddFileSequentially writes data across consecutive sectors starting at
// (head, track, sector), following NextPosition to cross sector and
// track boundaries, and fails if it runs out of space before data is
// exhausted (spec 4.6 "add_file_sequentially").
func (d *Disc) AddFileSequentially(head, track, sector byte, data []byte) (endHead, endTrack, endSector byte, err error) {
	h, tr, sec := head, track, sector
	consumed := 0
	for consumed < len(data) {
		s, ok := d.Sector(h, tr, sec)
		if !ok {
			return 0, 0, 0, diag.Container("head %d track %d sector %d: not found", h, tr, sec)
		}
		size := len(s.Values)
		chunk := data[consumed:]
		if len(chunk) > size {
			chunk = chunk[:size]
		} else if len(chunk) < size {
			// Final partial sector: zero-pad to the declared length.
			padded := make([]byte, size)
			copy(padded, chunk)
			chunk = padded
		}
		if err := s.SetValues(chunk); err != nil {
			return 0, 0, 0, err
		}
		consumed += size

		if consumed >= len(data) {
			return h, tr, sec, nil
		}
		nh, nt, ns, ok := d.NextPosition(h, tr, sec)
		if !ok {
			return 0, 0, 0, diag.Container("ran out of disc space writing file at head %d track %d sector %d", h, tr, sec)
		}
		h, tr, sec = nh, nt, ns
	}
	return h, tr, sec, nil
}
