package repdecoder

// Packet type IDs, as looked up in a version's packet-type catalogue.
// Real WoWS clients change these between versions; each variant's
// packetTypes map translates the wire ID to one of these logical kinds, so
// callers never switch on a raw magic number.
type packetKind int

const (
	packetKindUnknown packetKind = iota
	packetKindMap
	packetKindEntityCreate
	packetKindEntityMethod
	packetKindBattleStats
)

// variant bundles everything the decoder needs for one ClientVersion: the
// packet-type catalogue (wire ID -> logical kind) that lets the same
// dispatch loop support clients that renumber packet types across patches.
//
// Built once at package init and never mutated afterwards: an explicit
// immutable value object, not a lazily populated shared cache.
type variant struct {
	packetTypes map[uint32]packetKind
}

// defaultPacketTypes is the packet-type catalogue shared by every currently
// supported client version. A future client version that renumbers packet
// types gets its own map literal in the registry below — still a code
// change, never runtime configuration.
var defaultPacketTypes = map[uint32]packetKind{
	0:  packetKindMap,
	1:  packetKindEntityCreate,
	8:  packetKindEntityMethod,
	27: packetKindBattleStats,
}
