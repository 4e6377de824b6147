package repdecoder

import (
	"encoding/binary"
	"math"
)

// cursor aids reading framed packet data from a byte slice: little-endian
// integer reads plus a float read for the per-packet clock field, all
// advancing a single position.
type cursor struct {
	b   []byte
	pos uint32
}

func (c *cursor) remaining() uint32 {
	return uint32(len(c.b)) - c.pos
}

func (c *cursor) getByte() (r byte) {
	r, c.pos = c.b[c.pos], c.pos+1
	return
}

func (c *cursor) getUint16() (r uint16) {
	r, c.pos = binary.LittleEndian.Uint16(c.b[c.pos:]), c.pos+2
	return
}

func (c *cursor) getUint32() (r uint32) {
	r, c.pos = binary.LittleEndian.Uint32(c.b[c.pos:]), c.pos+4
	return
}

func (c *cursor) getFloat32() (r float32) {
	r = math.Float32frombits(binary.LittleEndian.Uint32(c.b[c.pos:]))
	c.pos += 4
	return
}

func (c *cursor) readSlice(size uint32) (r []byte) {
	r = make([]byte, size)
	c.pos += uint32(copy(r, c.b[c.pos:]))
	return
}
