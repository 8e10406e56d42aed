package main

import (
	"fmt"
	"os"

	"github.com/gmofishsauce/cpcasm/edsk"
)

// runEdskInfo prints the track/sector layout of an EDSK image, mirroring
// the one piece of disc introspection the assembler's own SAVE/EDSK
// pipeline needs for debugging (no GUI front-end, per spec section 1's
// out-of-scope list).
func runEdskInfo(inputFile string) error {
	data, err := os.ReadFile(inputFile)
	if err != nil {
		return fmt.Errorf("reading %s: %w", inputFile, err)
	}
	disc, err := edsk.Read(data)
	if err != nil {
		return err
	}
	if err := disc.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	for i, t := range disc.Tracks {
		if t == nil {
			fmt.Printf("track %d: unformatted\n", i)
			continue
		}
		fmt.Printf("track %d head %d: %d sectors\n", t.TrackNumber, t.HeadNumber, len(t.Sectors))
		for _, s := range t.Sectors {
			fmt.Printf("  sector 0x%02X: %d bytes\n", s.Info.SectorID, len(s.Values))
		}
	}
	return nil
}
