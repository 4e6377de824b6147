package repformat

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blowfish"

	"github.com/wowsreplays/ingest/internal/repcore"
)

// encryptStream reverses PacketStream's pipeline: zlib-compress the
// payload, zero-pad to the Blowfish block size, then ECB-encrypt.
func encryptStream(t *testing.T, payload []byte) []byte {
	t.Helper()

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	_, err := zw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	block, err := blowfish.NewCipher(blowfishKey)
	require.NoError(t, err)

	data := compressed.Bytes()
	bs := block.BlockSize()
	if rem := len(data) % bs; rem != 0 {
		data = append(data, make([]byte, bs-rem)...)
	}

	out := make([]byte, len(data))
	for i := 0; i < len(data); i += bs {
		block.Encrypt(out[i:i+bs], data[i:i+bs])
	}
	return out
}

func buildRaw(magic, blocks uint32, metadata []byte, tail []byte) []byte {
	buf := make([]byte, 0, 12+len(metadata)+len(tail))
	header := make([]byte, 12)
	binary.LittleEndian.PutUint32(header[0:4], magic)
	binary.LittleEndian.PutUint32(header[4:8], blocks)
	binary.LittleEndian.PutUint32(header[8:12], uint32(len(metadata)))
	buf = append(buf, header...)
	buf = append(buf, metadata...)
	buf = append(buf, tail...)
	return buf
}

func TestOpen_ParsesHeaderAndMetadata(t *testing.T) {
	metadata := []byte(`{"mapId":"spaces/19_OC_prey","dateTime":"03.01.2026 23:28:22","gameType":"CLAN","playerName":"_meteor0090"}`)
	raw := buildRaw(0x12345678, 1, metadata, []byte{0xAA, 0xBB, 0xCC, 0xDD})

	c, err := Open(raw)
	require.NoError(t, err)

	assert.Equal(t, uint32(0x12345678), c.Magic)
	assert.Equal(t, uint32(1), c.Blocks)
	assert.Equal(t, "spaces/19_OC_prey", c.Metadata.MapID)
	assert.Equal(t, "CLAN", c.Metadata.GameType)
	assert.Equal(t, "_meteor0090", c.Metadata.PlayerName)
}

func TestOpen_TooSmallForHeader(t *testing.T) {
	_, err := Open([]byte{1, 2, 3})
	require.Error(t, err)
	var malformed *repcore.MalformedHeaderError
	assert.ErrorAs(t, err, &malformed)
}

func TestOpen_MetadataBlockPastEndOfFile(t *testing.T) {
	raw := buildRaw(0x1, 1, nil, nil)
	// Claim a metadata size larger than the file actually carries.
	binary.LittleEndian.PutUint32(raw[8:12], 999)

	_, err := Open(raw)
	require.Error(t, err)
	var malformed *repcore.MalformedHeaderError
	assert.ErrorAs(t, err, &malformed)
}

func TestOpen_InvalidMetadataJSON(t *testing.T) {
	raw := buildRaw(0x1, 1, []byte("not json"), nil)

	_, err := Open(raw)
	require.Error(t, err)
	var malformed *repcore.MalformedHeaderError
	assert.ErrorAs(t, err, &malformed)
}

func TestPacketStream_RoundTrip(t *testing.T) {
	payload := []byte("framed packet bytes the decoder will walk")
	raw := buildRaw(0x1, 1, []byte(`{"mapId":"m"}`), encryptStream(t, payload))

	c, err := Open(raw)
	require.NoError(t, err)

	stream, err := c.PacketStream()
	require.NoError(t, err)
	assert.Equal(t, payload, stream)
}

func TestPacketStream_DecryptFailureOnGarbageInput(t *testing.T) {
	metadata := []byte(`{"mapId":"x"}`)
	// 8 bytes of arbitrary data is a valid Blowfish block but not valid
	// zlib once decrypted, so PacketStream must fail at the zlib stage
	// rather than panicking.
	raw := buildRaw(0x1, 1, metadata, []byte{1, 2, 3, 4, 5, 6, 7, 8})

	c, err := Open(raw)
	require.NoError(t, err)

	_, err = c.PacketStream()
	require.Error(t, err)
	var decryptErr *repcore.DecryptFailureError
	assert.ErrorAs(t, err, &decryptErr)
}
