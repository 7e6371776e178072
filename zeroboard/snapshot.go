package zeroboard

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/multisum/atomset"
	"github.com/hupe1980/multisum/quantize"
)

// Compression selects the snapshot payload compression algorithm.
type Compression uint8

const (
	// CompressionNone stores the payload uncompressed.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 framing (fast, moderate ratio).
	CompressionLZ4 Compression = 1
	// CompressionZSTD uses zstd (better ratio).
	CompressionZSTD Compression = 2
)

const (
	snapshotMagic   = "MSZB"
	snapshotVersion = 1
)

var (
	// ErrBadSnapshot is returned when a snapshot header or payload is
	// malformed or fails its checksum.
	ErrBadSnapshot = errors.New("zeroboard: malformed snapshot")

	// ErrSnapshotMismatch is returned when a snapshot was built from a
	// different atom set or precision than the caller's.
	ErrSnapshotMismatch = errors.New("zeroboard: snapshot does not match the atom set")
)

// SaveOptions contains configuration options for Save.
type SaveOptions struct {
	// Compression selects the payload compression. Default: zstd.
	Compression Compression
}

// snapshotHeader is the fixed-size container header, little-endian.
// The CRC covers the uncompressed payload.
type snapshotHeader struct {
	Magic       [4]byte
	Version     uint8
	Compression uint8
	Places      uint8
	_           uint8 // padding, must be zero
	K           uint32
	AtomCount   uint32
	BucketCount uint32
	EntryCount  uint64
	Fingerprint uint64
	RawLen      uint64
	PayloadLen  uint64
	CRC32       uint32
	_           uint32 // padding, must be zero
}

// Save writes the board to w as a versioned binary container:
// header, then the bucket payload (keys ascending, entries in bucket order)
// compressed with the selected codec and protected by a CRC32 of the raw
// bytes. The format is a pure function of the board contents.
func Save(w io.Writer, b *Board, optFns ...func(o *SaveOptions)) error {
	opts := SaveOptions{Compression: CompressionZSTD}
	for _, fn := range optFns {
		fn(&opts)
	}

	var raw bytes.Buffer
	for _, key := range b.sortedKeys() {
		bucket := b.buckets[key]
		if err := binary.Write(&raw, binary.LittleEndian, key); err != nil {
			return err
		}
		if err := binary.Write(&raw, binary.LittleEndian, uint32(len(bucket))); err != nil {
			return err
		}
		for _, e := range bucket {
			if err := binary.Write(&raw, binary.LittleEndian, []int32(e)); err != nil {
				return err
			}
		}
	}

	payload, err := compressPayload(raw.Bytes(), opts.Compression)
	if err != nil {
		return err
	}

	hdr := snapshotHeader{
		Version:     snapshotVersion,
		Compression: uint8(opts.Compression),
		Places:      uint8(b.prec.Places()),
		K:           uint32(b.k),
		AtomCount:   uint32(b.atomCount),
		BucketCount: uint32(len(b.buckets)),
		EntryCount:  uint64(b.entries),
		Fingerprint: b.fingerprint,
		RawLen:      uint64(raw.Len()),
		PayloadLen:  uint64(len(payload)),
		CRC32:       crc32.ChecksumIEEE(raw.Bytes()),
	}
	copy(hdr.Magic[:], snapshotMagic)

	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return err
	}
	_, err = w.Write(payload)
	return err
}

// Load reads a snapshot written by Save and reconstructs the board. The
// snapshot must have been built from the given atom set (verified via the
// quantized fingerprint); its precision is restored from the header.
func Load(r io.Reader, atoms *atomset.Set) (*Board, error) {
	var hdr snapshotHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadSnapshot, err)
	}
	if string(hdr.Magic[:]) != snapshotMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrBadSnapshot)
	}
	if hdr.Version != snapshotVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBadSnapshot, hdr.Version)
	}
	if hdr.K < 2 || hdr.RawLen > math.MaxUint32*16 {
		return nil, fmt.Errorf("%w: implausible header", ErrBadSnapshot)
	}

	prec, err := quantize.New(int(hdr.Places))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadSnapshot, err)
	}

	if hdr.Fingerprint != atoms.Fingerprint() || int(hdr.AtomCount) != atoms.Len() {
		return nil, ErrSnapshotMismatch
	}

	payload := make([]byte, hdr.PayloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadSnapshot, err)
	}

	raw, err := decompressPayload(payload, Compression(hdr.Compression), hdr.RawLen)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadSnapshot, err)
	}
	if uint64(len(raw)) != hdr.RawLen || crc32.ChecksumIEEE(raw) != hdr.CRC32 {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrBadSnapshot)
	}

	b := newBoard(int(hdr.K), prec)
	b.atomCount = int(hdr.AtomCount)
	b.fingerprint = hdr.Fingerprint

	rd := bytes.NewReader(raw)
	for bucketIdx := uint32(0); bucketIdx < hdr.BucketCount; bucketIdx++ {
		var key int64
		var count uint32
		if err := binary.Read(rd, binary.LittleEndian, &key); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadSnapshot, err)
		}
		if err := binary.Read(rd, binary.LittleEndian, &count); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadSnapshot, err)
		}
		bucket := make([]Entry, 0, count)
		for range count {
			e := make(Entry, hdr.K)
			if err := binary.Read(rd, binary.LittleEndian, []int32(e)); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrBadSnapshot, err)
			}
			for i, idx := range e {
				if idx < 0 || int(idx) >= atoms.Len() || (i > 0 && idx < e[i-1]) {
					return nil, fmt.Errorf("%w: entry out of range", ErrBadSnapshot)
				}
			}
			bucket = append(bucket, e)
		}
		b.buckets[key] = bucket
		b.entries += int(count)
	}
	if uint64(b.entries) != hdr.EntryCount || rd.Len() != 0 {
		return nil, fmt.Errorf("%w: entry count mismatch", ErrBadSnapshot)
	}

	return b, nil
}

func compressPayload(raw []byte, c Compression) ([]byte, error) {
	switch c {
	case CompressionNone:
		return raw, nil
	case CompressionZSTD:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, err
		}
		out := enc.EncodeAll(raw, nil)
		_ = enc.Close()
		return out, nil
	case CompressionLZ4:
		var buf bytes.Buffer
		zw := lz4.NewWriter(&buf)
		if _, err := zw.Write(raw); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("zeroboard: unknown compression %d", c)
	}
}

func decompressPayload(payload []byte, c Compression, rawLen uint64) ([]byte, error) {
	switch c {
	case CompressionNone:
		return payload, nil
	case CompressionZSTD:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return dec.DecodeAll(payload, make([]byte, 0, rawLen))
	case CompressionLZ4:
		zr := lz4.NewReader(bytes.NewReader(payload))
		raw := make([]byte, 0, rawLen)
		buf := bytes.NewBuffer(raw)
		if _, err := io.Copy(buf, zr); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("zeroboard: unknown compression %d", c)
	}
}
