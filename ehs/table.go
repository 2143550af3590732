package ehs

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// ErrShortTable is returned by ReadTable when the file ends early.
var ErrShortTable = errors.New("ehs: table file is truncated")

// CreateTable creates a new table file at path. It refuses to overwrite an
// existing file.
func CreateTable(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("ehs: create table: %w", err)
	}
	return f, nil
}

// WriteTable appends values to w as little-endian float64s. A table file is
// the concatenation of one such block per stage.
func WriteTable(w io.Writer, values []float64) error {
	bw := bufio.NewWriter(w)
	var buf [8]byte
	for _, v := range values {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		if _, err := bw.Write(buf[:]); err != nil {
			return fmt.Errorf("ehs: write table: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("ehs: write table: %w", err)
	}
	return nil
}

// ReadTable reads one block per entry of sizes from r.
func ReadTable(r io.Reader, sizes []uint64) ([][]float64, error) {
	br := bufio.NewReader(r)
	out := make([][]float64, len(sizes))
	var buf [8]byte
	for s, n := range sizes {
		block := make([]float64, n)
		for i := range block {
			if _, err := io.ReadFull(br, buf[:]); err != nil {
				if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
					return nil, fmt.Errorf("%w: block %d ends after %d of %d values", ErrShortTable, s, i, n)
				}
				return nil, fmt.Errorf("ehs: read table: %w", err)
			}
			block[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[:]))
		}
		out[s] = block
	}
	return out, nil
}
