package storage

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"time"

	"github.com/yndnr/crudkv-go/pkg/crypto/adaptive"
)

// BackupVersion is the backup stream format version.
const BackupVersion = 1

const (
	// frameHeaderSize is length (4) + crc (4).
	frameHeaderSize = 8

	// maxFrameSize bounds a single frame so a corrupted length prefix cannot
	// trigger a huge allocation.
	maxFrameSize = 256 << 20

	backupKeyInfo = "crudkv backup v1"
)

type frameType uint8

const (
	frameHeader frameType = iota + 1
	frameRecord
	frameTrailer
)

// Backup stream errors.
var (
	ErrBackupCorrupted   = errors.New("storage: backup corrupted")
	ErrChecksumMismatch  = errors.New("storage: backup checksum mismatch")
	ErrBackupVersion     = errors.New("storage: unsupported backup version")
	ErrBackupKeyRequired = errors.New("storage: backup is sealed and no key is configured")
)

// BackupHeader is the first frame of a backup stream.
type BackupHeader struct {
	Version   int    `json:"version"`
	CreatedAt int64  `json:"created_at"`
	Engine    string `json:"engine"`

	// Cipher and Salt are set when record values are sealed.
	Cipher string `json:"cipher,omitempty"`
	Salt   []byte `json:"salt,omitempty"`
}

type backupTrailer struct {
	Count int `json:"count"`
}

// WithBackupKey enables sealing of backup values. The per-stream key is
// derived from secret and a random salt stored in the stream header.
func WithBackupKey(secret []byte) Option {
	return func(e *Engine) {
		e.backupSecret = secret
	}
}

// Backup writes every record to w as a checksummed frame stream and returns
// the number of records written. Records come from one read snapshot.
func (e *Engine) Backup(ctx context.Context, w io.Writer) (int, error) {
	start := time.Now()
	n, err := e.backup(ctx, w)
	e.observe("backup", err, start)
	return n, err
}

func (e *Engine) backup(ctx context.Context, w io.Writer) (int, error) {
	header := BackupHeader{
		Version:   BackupVersion,
		CreatedAt: time.Now().UnixMilli(),
		Engine:    e.cfg.Engine,
	}

	var seal adaptive.Cipher
	if len(e.backupSecret) > 0 {
		salt, err := adaptive.NewSalt()
		if err != nil {
			return 0, newError("backup", "", ErrFault, err)
		}
		seal, err = backupCipher(e.backupSecret, salt, adaptive.Preferred())
		if err != nil {
			return 0, newError("backup", "", ErrFault, err)
		}
		header.Cipher = string(seal.Type())
		header.Salt = salt
	}

	bw := bufio.NewWriter(w)
	if err := writeJSONFrame(bw, frameHeader, header); err != nil {
		return 0, newError("backup", "", ErrFault, err)
	}

	count := 0
	var writeErr error
	err := e.scan(ctx, "backup", false, func(key, value []byte) bool {
		if seal != nil {
			sealed, err := seal.Encrypt(value, key)
			if err != nil {
				writeErr = err
				return false
			}
			value = sealed
		}
		if err := writeFrame(bw, frameRecord, encodeRecord(key, value)); err != nil {
			writeErr = err
			return false
		}
		count++
		return true
	})
	if err != nil {
		return count, err
	}
	if writeErr != nil {
		return count, newError("backup", "", ErrFault, writeErr)
	}

	if err := writeJSONFrame(bw, frameTrailer, backupTrailer{Count: count}); err != nil {
		return count, newError("backup", "", ErrFault, err)
	}
	if err := bw.Flush(); err != nil {
		return count, newError("backup", "", ErrFault, err)
	}

	e.logger.Info("backup written", "records", count, "sealed", seal != nil)
	return count, nil
}

// Restore reads a stream produced by Backup and puts every record. Existing
// records that are not in the stream are left alone. Restore stops at the
// first corrupted frame; records before it stay applied. It returns the
// number of records applied.
func (e *Engine) Restore(ctx context.Context, r io.Reader) (int, error) {
	start := time.Now()
	n, err := e.restore(ctx, r)
	e.observe("restore", err, start)
	return n, err
}

func (e *Engine) restore(ctx context.Context, r io.Reader) (int, error) {
	br := bufio.NewReader(r)

	typ, payload, err := readFrame(br)
	if errors.Is(err, io.EOF) {
		return 0, restoreErr(fmt.Errorf("%w: empty stream", ErrBackupCorrupted))
	}
	if err != nil {
		return 0, restoreErr(err)
	}
	if typ != frameHeader {
		return 0, restoreErr(fmt.Errorf("%w: stream does not start with a header", ErrBackupCorrupted))
	}
	var header BackupHeader
	if err := json.Unmarshal(payload, &header); err != nil {
		return 0, restoreErr(fmt.Errorf("%w: header: %v", ErrBackupCorrupted, err))
	}
	if header.Version != BackupVersion {
		return 0, restoreErr(fmt.Errorf("%w: %d", ErrBackupVersion, header.Version))
	}

	var open adaptive.Cipher
	if header.Cipher != "" {
		if len(e.backupSecret) == 0 {
			return 0, restoreErr(ErrBackupKeyRequired)
		}
		typ, err := adaptive.ParseCipherType(header.Cipher)
		if err != nil {
			return 0, restoreErr(err)
		}
		open, err = backupCipher(e.backupSecret, header.Salt, typ)
		if err != nil {
			return 0, restoreErr(err)
		}
	}

	applied := 0
	for {
		if err := ctx.Err(); err != nil {
			return applied, restoreErr(err)
		}

		typ, payload, err := readFrame(br)
		if errors.Is(err, io.EOF) {
			return applied, restoreErr(fmt.Errorf("%w: missing trailer", ErrBackupCorrupted))
		}
		if err != nil {
			return applied, restoreErr(err)
		}

		switch typ {
		case frameRecord:
			key, value, err := decodeRecord(payload)
			if err != nil {
				return applied, restoreErr(err)
			}
			if open != nil {
				value, err = open.Decrypt(value, key)
				if err != nil {
					return applied, restoreErr(fmt.Errorf("open record %q: %w", key, err))
				}
			}
			if err := e.put(ctx, string(key), value); err != nil {
				return applied, err
			}
			applied++

		case frameTrailer:
			var trailer backupTrailer
			if err := json.Unmarshal(payload, &trailer); err != nil {
				return applied, restoreErr(fmt.Errorf("%w: trailer: %v", ErrBackupCorrupted, err))
			}
			if trailer.Count != applied {
				return applied, restoreErr(fmt.Errorf("%w: trailer count %d, read %d", ErrBackupCorrupted, trailer.Count, applied))
			}
			e.logger.Info("backup restored", "records", applied, "created_at", header.CreatedAt)
			return applied, nil

		default:
			return applied, restoreErr(fmt.Errorf("%w: unexpected frame type %d", ErrBackupCorrupted, typ))
		}
	}
}

func restoreErr(err error) error {
	return newError("restore", "", ErrWrite, err)
}

func backupCipher(secret, salt []byte, typ adaptive.CipherType) (adaptive.Cipher, error) {
	key, err := adaptive.DeriveKey(secret, salt, backupKeyInfo)
	if err != nil {
		return nil, err
	}
	return adaptive.NewWithType(key, typ)
}

// Frame layout: [length:4][crc32:4][type:1][payload...], big-endian.
// length covers crc + type + payload; the CRC covers type + payload.
func writeFrame(w io.Writer, typ frameType, payload []byte) error {
	length := 4 + 1 + len(payload)
	if length > maxFrameSize {
		return fmt.Errorf("frame too large: %d bytes", length)
	}

	crc := crc32.NewIEEE()
	crc.Write([]byte{byte(typ)})
	crc.Write(payload)

	var hdr [frameHeaderSize + 1]byte
	binary.BigEndian.PutUint32(hdr[0:4], uint32(length))
	binary.BigEndian.PutUint32(hdr[4:8], crc.Sum32())
	hdr[8] = byte(typ)

	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

func writeJSONFrame(w io.Writer, typ frameType, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return writeFrame(w, typ, payload)
}

// readFrame returns io.EOF only at a clean frame boundary.
func readFrame(r io.Reader) (frameType, []byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, nil, fmt.Errorf("%w: truncated frame length", ErrBackupCorrupted)
		}
		return 0, nil, err
	}

	length := binary.BigEndian.Uint32(lenBuf[:])
	if length < 5 || length > maxFrameSize {
		return 0, nil, fmt.Errorf("%w: invalid frame length %d", ErrBackupCorrupted, length)
	}

	frame := make([]byte, length)
	if _, err := io.ReadFull(r, frame); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, nil, fmt.Errorf("%w: truncated frame", ErrBackupCorrupted)
		}
		return 0, nil, err
	}

	want := binary.BigEndian.Uint32(frame[:4])
	if crc32.ChecksumIEEE(frame[4:]) != want {
		return 0, nil, ErrChecksumMismatch
	}

	return frameType(frame[4]), frame[5:], nil
}

func encodeRecord(key, value []byte) []byte {
	out := make([]byte, 4+len(key)+len(value))
	binary.BigEndian.PutUint32(out[:4], uint32(len(key)))
	copy(out[4:], key)
	copy(out[4+len(key):], value)
	return out
}

func decodeRecord(payload []byte) (key, value []byte, err error) {
	if len(payload) < 4 {
		return nil, nil, fmt.Errorf("%w: short record", ErrBackupCorrupted)
	}
	n := binary.BigEndian.Uint32(payload[:4])
	if n == 0 || uint64(n) > uint64(len(payload)-4) {
		return nil, nil, fmt.Errorf("%w: invalid record id length %d", ErrBackupCorrupted, n)
	}
	key = payload[4 : 4+n]
	value = payload[4+n:]
	return key, value, nil
}
