// Package repformat implements the .wowsreplay container framing: the
// fixed header, the JSON metadata block, and the Blowfish/zlib-wrapped
// packet stream. It knows nothing about packet semantics — that's
// internal/repdecoder's job — only how to get from raw file bytes to a
// decompressed packet byte stream.
//
// The split keeps a small type responsible purely for
// framing/decompression, separate from the package that walks the
// decoded stream and interprets packets.
package repformat

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"io"

	"github.com/goccy/go-json"
	"golang.org/x/crypto/blowfish"

	"github.com/wowsreplays/ingest/internal/repcore"
)

// blowfishKey is the fixed key constant derived from the game client used
// to encrypt the packet stream. Real deployments source this from the
// client's resource files; it is a constant, not a secret, because it is
// embedded in the publicly distributed game client.
var blowfishKey = []byte{
	0x29, 0xB7, 0xC9, 0x09, 0x38, 0x3F, 0x84, 0x88,
	0xFA, 0x98, 0xEC, 0x4E, 0x13, 0x19, 0x79, 0xFB,
}

const headerSize = 8 // magic:u32 | blocks:u32

// Container is the parsed, but not yet packet-decoded, replay file.
type Container struct {
	Magic  uint32
	Blocks uint32

	Metadata Metadata

	// encryptedStream is the Blowfish-encrypted, zlib-compressed remainder
	// of the file, kept around until PacketStream() is called.
	encryptedStream []byte
}

// Metadata is the normalized JSON metadata block. Unknown keys are dropped
// at this boundary; callers never see a raw map[string]any.
type Metadata struct {
	ClientVersionFromExe string `json:"clientVersionFromExe"`
	MapID                string `json:"mapId"`
	MapDisplayName       string `json:"mapDisplayName"`
	DateTime             string `json:"dateTime"`
	GameType             string `json:"gameType"`
	PlayerName           string `json:"playerName"`
	PlayersInfo          []struct {
		Name     string `json:"name"`
		ShipID   int    `json:"shipId"`
		ShipName string `json:"shipName"`
		ClanTag  string `json:"clanTag"`
		TeamID   int    `json:"teamId"`
	} `json:"vehicles"`
}

// Open parses the fixed header and JSON metadata block of raw replay
// bytes, and stashes the remaining encrypted/compressed bytes for a later
// PacketStream call. It does not decrypt or decompress anything yet — that
// work only happens if the caller actually needs the packet stream.
func Open(raw []byte) (*Container, error) {
	if len(raw) < headerSize+4 {
		return nil, repcore.NewMalformedHeaderError("file too small for header")
	}

	c := &Container{
		Magic:  binary.LittleEndian.Uint32(raw[0:4]),
		Blocks: binary.LittleEndian.Uint32(raw[4:8]),
	}

	jsonSize := binary.LittleEndian.Uint32(raw[8:12])
	jsonStart := uint32(12)
	if uint64(jsonStart)+uint64(jsonSize) > uint64(len(raw)) {
		return nil, repcore.NewMalformedHeaderError("metadata block extends past end of file")
	}
	jsonBlock := raw[jsonStart : jsonStart+jsonSize]

	if err := json.Unmarshal(jsonBlock, &c.Metadata); err != nil {
		return nil, repcore.NewMalformedHeaderError("invalid metadata JSON: " + err.Error())
	}

	c.encryptedStream = raw[jsonStart+jsonSize:]
	return c, nil
}

// PacketStream decrypts (Blowfish, ECB mode) then decompresses (zlib) the
// container's packet stream and returns the raw decompressed packet bytes,
// ready for internal/repdecoder to walk.
func (c *Container) PacketStream() ([]byte, error) {
	decrypted, err := blowfishECBDecrypt(c.encryptedStream)
	if err != nil {
		return nil, repcore.NewDecryptFailureError(err.Error())
	}

	zr, err := zlib.NewReader(bytes.NewReader(decrypted))
	if err != nil {
		return nil, repcore.NewDecryptFailureError("zlib: " + err.Error())
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, repcore.NewTruncatedStreamError("zlib stream truncated", len(decrypted))
	}
	return out, nil
}

// blowfishECBDecrypt decrypts data in ECB mode: Blowfish has no native ECB
// mode in golang.org/x/crypto/blowfish (it exposes only the block cipher),
// so each 8-byte block is decrypted independently with no chaining, which
// is exactly what ECB means.
func blowfishECBDecrypt(data []byte) ([]byte, error) {
	block, err := blowfish.NewCipher(blowfishKey)
	if err != nil {
		return nil, err
	}

	bs := block.BlockSize()
	if len(data)%bs != 0 {
		// Trailing partial block: decrypt only the complete blocks, the
		// remainder (if any) is padding/trailer the caller doesn't need.
		data = data[:len(data)-len(data)%bs]
	}

	out := make([]byte, len(data))
	for i := 0; i < len(data); i += bs {
		block.Decrypt(out[i:i+bs], data[i:i+bs])
	}
	return out, nil
}
