package graph

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"unsafe"
)

const (
	magicBytes = "COOPRGRF"
	version    = uint32(1)
	maxNodes   = 50_000_000
	maxEdges   = 200_000_000
)

const flagTimeDependent = uint32(1)

// fileHeader is the binary header.
type fileHeader struct {
	Magic    [8]byte
	Version  uint32
	Flags    uint32
	NumNodes uint32
	NumEdges uint32
}

// WriteBinary serializes a Graph to a binary file. Written atomically via a
// temp file; the payload is protected by a CRC32 trailer.
func WriteBinary(path string, g *Graph) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath) // clean up on error
	}()

	crcWriter := crc32Writer{w: f, hash: crc32.NewIEEE()}
	w := &crcWriter

	hdr := fileHeader{
		Version:  version,
		NumNodes: g.NumNodes,
		NumEdges: g.NumEdges,
	}
	if g.TimeDependent() {
		hdr.Flags |= flagTimeDependent
	}
	copy(hdr.Magic[:], magicBytes)
	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, part := range []struct {
		name string
		data []uint32
	}{
		{"FirstOut", g.FirstOut},
		{"Head", g.Head},
		{"DistanceM", g.DistanceM},
		{"FreeflowTime", g.FreeflowTime},
		{"CapacityPerHour", g.CapacityPerHour},
	} {
		if err := writeUint32Slice(w, part.data); err != nil {
			return fmt.Errorf("write %s: %w", part.name, err)
		}
	}

	if err := writeFloat64Slice(w, g.NodeLat); err != nil {
		return fmt.Errorf("write NodeLat: %w", err)
	}
	if err := writeFloat64Slice(w, g.NodeLon); err != nil {
		return fmt.Errorf("write NodeLon: %w", err)
	}

	if g.TimeDependent() {
		// Profiles flattened into one CSR-style block.
		profFirstOut := make([]uint32, g.NumEdges+1)
		var departures []Timestamp
		var travelTimes []Weight
		for e := uint32(0); e < g.NumEdges; e++ {
			profFirstOut[e] = uint32(len(departures))
			departures = append(departures, g.Profiles[e].Departure...)
			travelTimes = append(travelTimes, g.Profiles[e].TravelTime...)
		}
		profFirstOut[g.NumEdges] = uint32(len(departures))

		if err := writeLenPrefixedUint32(w, profFirstOut); err != nil {
			return fmt.Errorf("write ProfFirstOut: %w", err)
		}
		if err := writeUint32Slice(w, departures); err != nil {
			return fmt.Errorf("write ProfDeparture: %w", err)
		}
		if err := writeUint32Slice(w, travelTimes); err != nil {
			return fmt.Errorf("write ProfTravelTime: %w", err)
		}
	}

	checksum := crcWriter.hash.Sum32()
	if err := binary.Write(f, binary.LittleEndian, checksum); err != nil {
		return fmt.Errorf("write CRC32: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// ReadBinary deserializes a Graph from a binary file.
func ReadBinary(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	crcReader := crc32Reader{r: f, hash: crc32.NewIEEE()}
	r := &crcReader

	var hdr fileHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if string(hdr.Magic[:]) != magicBytes {
		return nil, fmt.Errorf("invalid magic bytes: %q", hdr.Magic)
	}
	if hdr.Version != version {
		return nil, fmt.Errorf("unsupported version: %d", hdr.Version)
	}
	if hdr.NumNodes > maxNodes {
		return nil, fmt.Errorf("NumNodes %d exceeds limit %d", hdr.NumNodes, maxNodes)
	}
	if hdr.NumEdges > maxEdges {
		return nil, fmt.Errorf("NumEdges %d exceeds limit %d", hdr.NumEdges, maxEdges)
	}

	g := &Graph{NumNodes: hdr.NumNodes, NumEdges: hdr.NumEdges}
	n, m := int(hdr.NumNodes), int(hdr.NumEdges)

	if g.FirstOut, err = readUint32Slice(r, n+1); err != nil {
		return nil, fmt.Errorf("read FirstOut: %w", err)
	}
	if g.Head, err = readUint32Slice(r, m); err != nil {
		return nil, fmt.Errorf("read Head: %w", err)
	}
	if g.DistanceM, err = readUint32Slice(r, m); err != nil {
		return nil, fmt.Errorf("read DistanceM: %w", err)
	}
	if g.FreeflowTime, err = readUint32Slice(r, m); err != nil {
		return nil, fmt.Errorf("read FreeflowTime: %w", err)
	}
	if g.CapacityPerHour, err = readUint32Slice(r, m); err != nil {
		return nil, fmt.Errorf("read CapacityPerHour: %w", err)
	}
	if g.NodeLat, err = readFloat64Slice(r, n); err != nil {
		return nil, fmt.Errorf("read NodeLat: %w", err)
	}
	if g.NodeLon, err = readFloat64Slice(r, n); err != nil {
		return nil, fmt.Errorf("read NodeLon: %w", err)
	}

	if hdr.Flags&flagTimeDependent != 0 {
		profFirstOut, err := readLenPrefixedUint32(r)
		if err != nil {
			return nil, fmt.Errorf("read ProfFirstOut: %w", err)
		}
		if len(profFirstOut) != m+1 {
			return nil, fmt.Errorf("ProfFirstOut length %d != NumEdges+1", len(profFirstOut))
		}
		total := int(profFirstOut[m])
		departures, err := readUint32Slice(r, total)
		if err != nil {
			return nil, fmt.Errorf("read ProfDeparture: %w", err)
		}
		travelTimes, err := readUint32Slice(r, total)
		if err != nil {
			return nil, fmt.Errorf("read ProfTravelTime: %w", err)
		}

		g.Profiles = make([]Profile, m)
		for e := 0; e < m; e++ {
			lo, hi := profFirstOut[e], profFirstOut[e+1]
			g.Profiles[e] = Profile{
				Departure:  departures[lo:hi:hi],
				TravelTime: travelTimes[lo:hi:hi],
			}
		}
	}

	expectedCRC := crcReader.hash.Sum32()
	var storedCRC uint32
	if err := binary.Read(f, binary.LittleEndian, &storedCRC); err != nil {
		return nil, fmt.Errorf("read CRC32: %w", err)
	}
	if storedCRC != expectedCRC {
		return nil, fmt.Errorf("CRC32 mismatch: stored=%08x computed=%08x", storedCRC, expectedCRC)
	}

	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("graph invalid: %w", err)
	}
	return g, nil
}

// Zero-copy I/O helpers using unsafe.Slice.

func writeUint32Slice(w io.Writer, s []uint32) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4)
	_, err := w.Write(b)
	return err
}

func writeFloat64Slice(w io.Writer, s []float64) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*8)
	_, err := w.Write(b)
	return err
}

func writeLenPrefixedUint32(w io.Writer, s []uint32) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	return writeUint32Slice(w, s)
}

func readUint32Slice(r io.Reader, n int) ([]uint32, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]uint32, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*4)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

func readFloat64Slice(r io.Reader, n int) ([]float64, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]float64, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*8)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

func readLenPrefixedUint32(r io.Reader) ([]uint32, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	if n > maxEdges+1 {
		return nil, fmt.Errorf("length prefix %d exceeds limit", n)
	}
	return readUint32Slice(r, int(n))
}

// crc32Writer wraps a writer, hashing all bytes written.
type crc32Writer struct {
	w    io.Writer
	hash interface {
		io.Writer
		Sum32() uint32
	}
}

func (cw *crc32Writer) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	if n > 0 {
		cw.hash.Write(p[:n])
	}
	return n, err
}

// crc32Reader wraps a reader, hashing all bytes read.
type crc32Reader struct {
	r    io.Reader
	hash interface {
		io.Writer
		Sum32() uint32
	}
}

func (cr *crc32Reader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.hash.Write(p[:n])
	}
	return n, err
}
