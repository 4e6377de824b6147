package repdecoder

import "github.com/wowsreplays/ingest/internal/repcore"

// registry is the closed, version-indexed set of decoder variants. It is
// populated once below and never written to again — consulted once at
// decode start.
var registry = map[repcore.ClientVersion]*variant{
	repcore.ClientVersion13_5_0:  {packetTypes: defaultPacketTypes},
	repcore.ClientVersion14_10_0: {packetTypes: defaultPacketTypes},
	repcore.ClientVersion14_11_0: {packetTypes: defaultPacketTypes},
}

// lookup returns the variant for v, or an UnsupportedVersionError.
func lookup(v repcore.ClientVersion) (*variant, error) {
	variant, ok := registry[v]
	if !ok {
		return nil, repcore.NewUnsupportedVersionError(v)
	}
	return variant, nil
}
