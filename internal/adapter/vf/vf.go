// Package vf implements the viewer's binary volume format: a 4-byte magic,
// three little-endian uint16 dimensions (width, height, depth), then the
// sample stream as little-endian float32, innermost axis last.
package vf

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/couchcryptid/radar-volume-etl/internal/domain"
)

// Magic identifies a volume file. The viewer rejects anything else.
var Magic = [4]byte{'V', 'F', '_', 'F'}

const (
	headerSize = 10
	maxDim     = math.MaxUint16
)

// Encode writes one volume to w. The volume must already be in viewer axis
// order: dimensions are taken as width = Shape[2], height = Shape[1],
// depth = Shape[0], and the sample stream is the volume's row-major order.
// Samples are cast to float32 regardless of source precision.
func Encode(w io.Writer, v *domain.Volume) error {
	for _, n := range v.Shape {
		if n > maxDim {
			return fmt.Errorf("%w: axis extent %d", domain.ErrVolumeTooLarge, n)
		}
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.Write(Magic[:]); err != nil {
		return fmt.Errorf("write magic: %w", err)
	}
	dims := [3]uint16{uint16(v.Shape[2]), uint16(v.Shape[1]), uint16(v.Shape[0])}
	if err := binary.Write(bw, binary.LittleEndian, dims); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}

	var buf [4]byte
	for _, s := range v.Data {
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(float32(s)))
		if _, err := bw.Write(buf[:]); err != nil {
			return fmt.Errorf("write samples: %w", err)
		}
	}
	return bw.Flush()
}

// WriteFile encodes the volume to path, replacing any existing file.
func WriteFile(path string, v *domain.Volume) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := Encode(f, v); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// Decode reads one volume from r. Samples come back as float64 with float32
// precision; the shape is reconstructed as (depth, height, width).
func Decode(r io.Reader) (*domain.Volume, error) {
	br := bufio.NewReader(r)

	var magic [4]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	if magic != Magic {
		return nil, fmt.Errorf("bad magic %q", magic[:])
	}

	var dims [3]uint16
	if err := binary.Read(br, binary.LittleEndian, &dims); err != nil {
		return nil, fmt.Errorf("read dimensions: %w", err)
	}
	width, height, depth := int(dims[0]), int(dims[1]), int(dims[2])

	n := width * height * depth
	data := make([]float64, n)
	var buf [4]byte
	for i := range data {
		if _, err := io.ReadFull(br, buf[:]); err != nil {
			return nil, fmt.Errorf("read sample %d of %d: %w", i, n, err)
		}
		data[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[:])))
	}
	return domain.NewVolume(data, [3]int{depth, height, width})
}

// ReadFile decodes the volume at path.
func ReadFile(path string) (*domain.Volume, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Decode(f)
}

// EncodedSize returns the on-disk byte count for a volume of the given shape.
func EncodedSize(shape [3]int) int64 {
	return headerSize + 4*int64(shape[0])*int64(shape[1])*int64(shape[2])
}
