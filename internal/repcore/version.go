package repcore

// ClientVersion identifies a supported WoWS client/replay format version.
// This is a closed enum:
// adding a new client version is a code change — a new ClientVersion
// constant plus a matching decoder/stats-table bundle registered in
// internal/repdecoder and internal/statsparser — never a runtime-configured
// lookup.
type ClientVersion string

// Supported client versions. The index tables and decoder variants for
// each live in internal/repdecoder and internal/statsparser; this type is
// only the shared key both registries are indexed by.
const (
	ClientVersion14_11_0 ClientVersion = "14.11.0"
	ClientVersion14_10_0 ClientVersion = "14.10.0"
	ClientVersion13_5_0  ClientVersion = "13.5.0"
)

// KnownClientVersions lists every ClientVersion with a registered decoder
// and stats table, in release order.
var KnownClientVersions = []ClientVersion{
	ClientVersion13_5_0,
	ClientVersion14_10_0,
	ClientVersion14_11_0,
}

// Known reports whether v has a registered decoder/stats-table bundle.
func (v ClientVersion) Known() bool {
	for _, k := range KnownClientVersions {
		if k == v {
			return true
		}
	}
	return false
}
