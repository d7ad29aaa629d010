// Package frame writes and reads length-prefixed msgpack record files.
//
// Each record is one frame: a 4-byte big-endian payload length followed by
// the msgpack-encoded record. Writer stages frames in a temporary file and
// renames it into place on Commit.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// Frame size constants.
const (
	// MaxFrameSize is the maximum frame size (16 MiB), including length prefix.
	MaxFrameSize = 16 * 1024 * 1024
	// MaxPayloadSize is the maximum payload size (MaxFrameSize - 4 bytes).
	MaxPayloadSize = MaxFrameSize - LengthPrefixSize
	// LengthPrefixSize is the size of the length prefix in bytes.
	LengthPrefixSize = 4
)

// ErrorKind classifies frame errors.
type ErrorKind int

const (
	// ErrorPartial indicates a truncated or incomplete frame.
	ErrorPartial ErrorKind = iota
	// ErrorTooLarge indicates a frame exceeding MaxFrameSize.
	ErrorTooLarge
	// ErrorDecode indicates a msgpack decoding error.
	ErrorDecode
	// ErrorEncode indicates a msgpack encoding error.
	ErrorEncode
)

// FrameError represents a frame encoding or decoding error.
type FrameError struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *FrameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// IsCorrupt reports whether the stream itself is damaged: partial and
// oversized frames cannot be skipped.
func (e *FrameError) IsCorrupt() bool {
	return e.Kind == ErrorPartial || e.Kind == ErrorTooLarge
}

// IsCorruptFrameError returns true if err is a corrupt-stream frame error.
func IsCorruptFrameError(err error) bool {
	var frameErr *FrameError
	if errors.As(err, &frameErr) {
		return frameErr.IsCorrupt()
	}
	return false
}

// Encoder writes msgpack frames to a stream.
type Encoder struct {
	w io.Writer
}

// NewEncoder creates an encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes v as one frame and returns the number of bytes written.
func (e *Encoder) Encode(v any) (int, error) {
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return 0, &FrameError{Kind: ErrorEncode, Msg: "failed to encode record", Err: err}
	}
	if len(payload) > MaxPayloadSize {
		return 0, &FrameError{
			Kind: ErrorTooLarge,
			Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", len(payload), MaxPayloadSize),
		}
	}

	var prefix [LengthPrefixSize]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(payload)))
	n, err := e.w.Write(prefix[:])
	if err != nil {
		return n, err
	}
	m, err := e.w.Write(payload)
	return n + m, err
}

// EncodedSize returns the size of v as one frame, length prefix included.
func EncodedSize(v any) (int64, error) {
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return 0, &FrameError{Kind: ErrorEncode, Msg: "failed to encode record", Err: err}
	}
	return int64(LengthPrefixSize + len(payload)), nil
}

// Decoder reads msgpack frames from a stream.
type Decoder struct {
	r io.Reader
}

// NewDecoder creates a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// ReadFrame reads a single frame and returns its raw msgpack payload.
//
// Errors:
//   - io.EOF: stream ended cleanly (no more frames)
//   - *FrameError with Kind=ErrorPartial: incomplete frame
//   - *FrameError with Kind=ErrorTooLarge: frame exceeds limit
func (d *Decoder) ReadFrame() ([]byte, error) {
	var prefix [LengthPrefixSize]byte
	if _, err := io.ReadFull(d.r, prefix[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, &FrameError{Kind: ErrorPartial, Msg: "failed to read length prefix", Err: err}
	}

	size := binary.BigEndian.Uint32(prefix[:])
	if size > MaxPayloadSize {
		return nil, &FrameError{
			Kind: ErrorTooLarge,
			Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", size, MaxPayloadSize),
		}
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(d.r, payload); err != nil {
		return nil, &FrameError{Kind: ErrorPartial, Msg: "failed to read payload", Err: err}
	}
	return payload, nil
}

// Decode reads the next frame into v.
func (d *Decoder) Decode(v any) error {
	payload, err := d.ReadFrame()
	if err != nil {
		return err
	}
	if err := msgpack.Unmarshal(payload, v); err != nil {
		return &FrameError{Kind: ErrorDecode, Msg: "failed to decode record", Err: err}
	}
	return nil
}

// ReadAll decodes every frame in r.
func ReadAll[D any](r io.Reader) ([]D, error) {
	dec := NewDecoder(r)
	var out []D
	for {
		var rec D
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}
