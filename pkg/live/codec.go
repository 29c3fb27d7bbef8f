package live

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// Precision is how many steps a cell is divided into on the wire
const Precision = 16

// maxString bounds a decoded string so a bad length cannot exhaust memory
const maxString = 1 << 20

// Encoder writes live protocol primitives
type Encoder struct {
	w   io.Writer
	err error
}

// NewEncoder creates a new encoder
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Err returns the first write error
func (e *Encoder) Err() error {
	return e.err
}

func (e *Encoder) write(b []byte) error {
	if e.err != nil {
		return e.err
	}
	_, e.err = e.w.Write(b)
	return e.err
}

// WriteUvarint writes an unsigned varint
func (e *Encoder) WriteUvarint(v uint64) error {
	return e.write(binary.AppendUvarint(nil, v))
}

// WriteVarint writes a zigzag encoded signed varint
func (e *Encoder) WriteVarint(v int64) error {
	return e.write(binary.AppendVarint(nil, v))
}

// WriteCoord writes a position in cells at wire precision
func (e *Encoder) WriteCoord(v float64) error {
	return e.WriteVarint(int64(math.Round(v * Precision)))
}

// WriteString writes a length-prefixed string
func (e *Encoder) WriteString(s string) error {
	if err := e.WriteUvarint(uint64(len(s))); err != nil {
		return err
	}
	return e.write([]byte(s))
}

// WriteBytes writes raw bytes
func (e *Encoder) WriteBytes(b []byte) error {
	return e.write(b)
}

// Decoder reads live protocol primitives
type Decoder struct {
	r *bytes.Reader
}

// NewDecoder creates a decoder over one frame
func NewDecoder(data []byte) *Decoder {
	return &Decoder{r: bytes.NewReader(data)}
}

// ReadByte implements io.ByteReader
func (d *Decoder) ReadByte() (byte, error) {
	return d.r.ReadByte()
}

// ReadUvarint reads an unsigned varint
func (d *Decoder) ReadUvarint() (uint64, error) {
	return binary.ReadUvarint(d.r)
}

// ReadVarint reads a zigzag encoded signed varint
func (d *Decoder) ReadVarint() (int64, error) {
	return binary.ReadVarint(d.r)
}

// ReadCoord reads a position written by WriteCoord
func (d *Decoder) ReadCoord() (float64, error) {
	v, err := d.ReadVarint()
	return float64(v) / Precision, err
}

// ReadString reads a length-prefixed string
func (d *Decoder) ReadString() (string, error) {
	length, err := d.ReadUvarint()
	if err != nil {
		return "", err
	}
	if length > maxString || length > uint64(d.r.Len()) {
		return "", fmt.Errorf("string length %d exceeds frame", length)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// EncodeEvent encodes an event frame
func EncodeEvent(evt Event) []byte {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	enc.WriteBytes([]byte{byte(FrameEvent), byte(evt.Type)})
	enc.WriteCoord(evt.X)
	enc.WriteCoord(evt.Y)
	return buf.Bytes()
}

// DecodeEvent decodes an event frame
func DecodeEvent(data []byte) (*Event, error) {
	if len(data) < 4 {
		return nil, errors.New("event data too short")
	}
	if data[0] != byte(FrameEvent) {
		return nil, errors.New("not an event frame")
	}
	evt := &Event{Type: EventType(data[1])}
	dec := NewDecoder(data[2:])
	var err error
	if evt.X, err = dec.ReadCoord(); err != nil {
		return nil, fmt.Errorf("failed to decode x: %w", err)
	}
	if evt.Y, err = dec.ReadCoord(); err != nil {
		return nil, fmt.Errorf("failed to decode y: %w", err)
	}
	return evt, nil
}

// EncodeRender encodes a render frame
func EncodeRender(r Render) []byte {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	enc.WriteBytes([]byte{byte(FrameRender)})
	enc.WriteUvarint(r.Seq)
	enc.WriteString(r.Status)
	enc.WriteString(r.Frame)
	return buf.Bytes()
}

// DecodeRender decodes a render frame
func DecodeRender(data []byte) (*Render, error) {
	if len(data) == 0 || data[0] != byte(FrameRender) {
		return nil, errors.New("not a render frame")
	}
	dec := NewDecoder(data[1:])
	r := &Render{}
	var err error
	if r.Seq, err = dec.ReadUvarint(); err != nil {
		return nil, fmt.Errorf("failed to decode seq: %w", err)
	}
	if r.Status, err = dec.ReadString(); err != nil {
		return nil, fmt.Errorf("failed to decode status: %w", err)
	}
	if r.Frame, err = dec.ReadString(); err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	return r, nil
}

// EncodeControl encodes a control frame: a name followed by string args
func EncodeControl(name string, args ...string) []byte {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	enc.WriteBytes([]byte{byte(FrameControl)})
	enc.WriteString(name)
	for _, a := range args {
		enc.WriteString(a)
	}
	return buf.Bytes()
}

// DecodeControl decodes a control frame
func DecodeControl(data []byte) (name string, args []string, err error) {
	if len(data) == 0 || data[0] != byte(FrameControl) {
		return "", nil, errors.New("not a control frame")
	}
	dec := NewDecoder(data[1:])
	if name, err = dec.ReadString(); err != nil {
		return "", nil, fmt.Errorf("failed to decode control name: %w", err)
	}
	for dec.r.Len() > 0 {
		a, err := dec.ReadString()
		if err != nil {
			return "", nil, fmt.Errorf("failed to decode %s argument: %w", name, err)
		}
		args = append(args, a)
	}
	return name, args, nil
}
