package fork

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"os"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Twox128 computes the 128-bit keyed hash used for module storage
// prefixes: xxhash64 with seed 0 and seed 1, each little-endian,
// concatenated.
func Twox128(data []byte) []byte {
	h0 := xxhash.NewWithSeed(0)
	h1 := xxhash.NewWithSeed(1)
	h0.Write(data)
	h1.Write(data)

	out := make([]byte, 16)
	binary.LittleEndian.PutUint64(out[:8], h0.Sum64())
	binary.LittleEndian.PutUint64(out[8:], h1.Sum64())
	return out
}

// Twox128Hex returns the 0x-prefixed hex form of Twox128(s).
func Twox128Hex(s string) string {
	return "0x" + hex.EncodeToString(Twox128([]byte(s)))
}

// PrefixSet is the set of storage key prefixes eligible for
// transplantation into the forked spec: module hashes derived from
// metadata plus manually pinned full keys.
type PrefixSet []string

// Matches reports whether key starts with any prefix in the set.
func (p PrefixSet) Matches(key string) bool {
	for _, prefix := range p {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

// DefaultSkipModules lists the modules whose storage stays on the
// forked chain's own fresh values: chain identity and consensus
// bookkeeping that must not be transplanted from the source chain.
// Treated as configuration data; not extended silently.
func DefaultSkipModules() []string {
	return []string{
		"System",
		"Session",
		"Babe",
		"Grandpa",
		"GrandpaFinality",
		"FinalityTracker",
		"Authorship",
	}
}

// DefaultPinnedPrefixes lists full keys retained regardless of the
// skip list. System is skipped as a module, but its account map
// carries the balances being forked.
func DefaultPinnedPrefixes() []string {
	return []string{SystemAccountPrefix}
}

// BuildPrefixSet derives the retained-prefix set from chain metadata.
// Every module with a storage section whose name is not in skips
// contributes the Twox128 hash of its storage prefix; pinned entries
// are appended verbatim. Deterministic given its inputs.
func BuildPrefixSet(meta *Metadata, skips []string, pinned []string) (PrefixSet, error) {
	if meta == nil || len(meta.Modules) == 0 {
		return nil, ErrNoMetadata
	}

	skip := make(map[string]struct{}, len(skips))
	for _, name := range skips {
		skip[name] = struct{}{}
	}

	set := make(PrefixSet, 0, len(meta.Modules)+len(pinned))
	for _, mod := range meta.Modules {
		if mod.Storage == nil {
			continue
		}
		if _, ok := skip[mod.Name]; ok {
			continue
		}
		set = append(set, Twox128Hex(mod.Storage.Prefix))
	}
	for _, pin := range pinned {
		set = append(set, strings.ToLower(pin))
	}
	return set, nil
}

// LoadMetadata reads a module metadata document from a JSON file.
func LoadMetadata(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	if len(meta.Modules) == 0 {
		return nil, ErrNoMetadata
	}
	return &meta, nil
}
