// Package fork snapshots the key-value storage of a live chain over
// JSON-RPC and splices it, together with a set of fixed overrides,
// into a fresh genesis spec so a second chain boots with state
// equivalent to the first.
package fork

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// KeyValuePair is one storage entry moved from the source chain into
// the forked spec. Keys and values are hex strings with 0x prefix.
// The wire and file format is the 2-element array ["0x..","0x.."]
// used by state_getPairs and by the snapshot file.
type KeyValuePair struct {
	Key   string
	Value string
}

// MarshalJSON encodes the pair as a 2-element JSON array.
func (p KeyValuePair) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{p.Key, p.Value})
}

// UnmarshalJSON decodes a 2-element JSON array and verifies both
// elements are hex strings. Key encoding semantics beyond that are
// not validated.
func (p *KeyValuePair) UnmarshalJSON(data []byte) error {
	var arr [2]string
	if err := json.Unmarshal(data, &arr); err != nil {
		return err
	}
	if err := checkHex(arr[0]); err != nil {
		return fmt.Errorf("storage key %q: %w", arr[0], err)
	}
	if err := checkHex(arr[1]); err != nil {
		return fmt.Errorf("storage value %q: %w", arr[1], err)
	}
	p.Key = arr[0]
	p.Value = arr[1]
	return nil
}

// checkHex verifies s is a 0x-prefixed hex string.
func checkHex(s string) error {
	if !strings.HasPrefix(s, "0x") {
		return fmt.Errorf("missing 0x prefix: %w", ErrInvalidHex)
	}
	if _, err := hex.DecodeString(strings.TrimPrefix(s, "0x")); err != nil {
		return fmt.Errorf("%v: %w", err, ErrInvalidHex)
	}
	return nil
}

// HexToBytes decodes a 0x-prefixed hex string to raw bytes.
func HexToBytes(s string) ([]byte, error) {
	if err := checkHex(s); err != nil {
		return nil, err
	}
	return hex.DecodeString(strings.TrimPrefix(s, "0x"))
}

// BytesToHex encodes raw bytes as a lowercase 0x-prefixed hex string.
func BytesToHex(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

// GenesisSpec is a chain spec document. Only the fields the splicer
// touches are first-class; everything else in the document
// (bootNodes, properties, telemetry, ...) is carried through
// marshaling untouched so the template survives a splice intact.
type GenesisSpec struct {
	Name       string
	ID         string
	ProtocolID string
	Genesis    Genesis

	extra map[string]json.RawMessage
	seen  map[string]bool
}

// Genesis holds the raw genesis storage of a spec document.
type Genesis struct {
	Raw RawGenesis

	extra map[string]json.RawMessage
}

// RawGenesis is the genesis.raw section: the chain's initial storage.
type RawGenesis struct {
	Top             map[string]string          `json:"top"`
	ChildrenDefault map[string]json.RawMessage `json:"childrenDefault"`
}

// UnmarshalJSON decodes a spec document, keeping unrecognized
// top-level fields for re-emission.
func (s *GenesisSpec) UnmarshalJSON(data []byte) error {
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	s.seen = make(map[string]bool, 3)
	for key, dst := range map[string]*string{
		"name":       &s.Name,
		"id":         &s.ID,
		"protocolId": &s.ProtocolID,
	} {
		present, err := takeString(fields, key, dst)
		if err != nil {
			return err
		}
		s.seen[key] = present
	}
	if raw, ok := fields["genesis"]; ok {
		if err := json.Unmarshal(raw, &s.Genesis); err != nil {
			return fmt.Errorf("genesis section: %w", err)
		}
		delete(fields, "genesis")
	}
	s.extra = fields
	return nil
}

// MarshalJSON re-emits the spec document, merging the first-class
// fields back over the preserved remainder. An identity field is
// emitted only when the input document carried it or a value was set
// since; a document without protocolId does not grow an empty one.
func (s GenesisSpec) MarshalJSON() ([]byte, error) {
	fields := make(map[string]json.RawMessage, len(s.extra)+4)
	for k, v := range s.extra {
		fields[k] = v
	}
	for key, value := range map[string]string{
		"name":       s.Name,
		"id":         s.ID,
		"protocolId": s.ProtocolID,
	} {
		if value == "" && !s.seen[key] {
			continue
		}
		if err := putJSON(fields, key, value); err != nil {
			return nil, err
		}
	}
	if err := putJSON(fields, "genesis", s.Genesis); err != nil {
		return nil, err
	}
	return json.Marshal(fields)
}

// UnmarshalJSON decodes the genesis section, keeping sibling fields
// of "raw" (runtime sections in non-raw specs) for re-emission.
func (g *Genesis) UnmarshalJSON(data []byte) error {
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if raw, ok := fields["raw"]; ok {
		if err := json.Unmarshal(raw, &g.Raw); err != nil {
			return fmt.Errorf("raw section: %w", err)
		}
		delete(fields, "raw")
	}
	if g.Raw.Top == nil {
		g.Raw.Top = make(map[string]string)
	}
	if g.Raw.ChildrenDefault == nil {
		g.Raw.ChildrenDefault = make(map[string]json.RawMessage)
	}
	g.extra = fields
	return nil
}

// MarshalJSON re-emits the genesis section.
func (g Genesis) MarshalJSON() ([]byte, error) {
	fields := make(map[string]json.RawMessage, len(g.extra)+1)
	for k, v := range g.extra {
		fields[k] = v
	}
	if err := putJSON(fields, "raw", g.Raw); err != nil {
		return nil, err
	}
	return json.Marshal(fields)
}

// takeString extracts a top-level string field, reporting whether the
// document carried it. A null value counts as absent.
func takeString(fields map[string]json.RawMessage, key string, dst *string) (bool, error) {
	raw, ok := fields[key]
	if !ok || string(raw) == "null" {
		delete(fields, key)
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("field %q: %w", key, err)
	}
	delete(fields, key)
	return true, nil
}

func putJSON(fields map[string]json.RawMessage, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("field %q: %w", key, err)
	}
	fields[key] = raw
	return nil
}

// Metadata describes the runtime modules of the source chain. It is
// read from a JSON file prepared by operator tooling; decoding
// on-chain SCALE metadata is out of scope here.
type Metadata struct {
	Modules []ModuleMetadata `json:"modules"`
}

// ModuleMetadata is one runtime module. Storage is nil for modules
// without a storage section.
type ModuleMetadata struct {
	Name    string           `json:"name"`
	Storage *StorageMetadata `json:"storage,omitempty"`
}

// StorageMetadata describes a module's storage section. Prefix is the
// name hashed into the module's storage key prefix; it usually equals
// the module name but is not required to.
type StorageMetadata struct {
	Prefix string `json:"prefix"`
}

// Config carries the recognized options for a fork run. It replaces
// ambient process state; all components take what they need from it
// explicitly.
type Config struct {
	// Endpoint is the source chain's HTTP RPC target.
	Endpoint string

	// ChainID is the source chain identifier handed to the chain
	// binary when producing the original spec.
	ChainID string

	// ChunkLevels is the keyspace subdivision depth: the fetch walks
	// 256^ChunkLevels leaf chunks.
	ChunkLevels int

	// QuickMode fans the 256 leaf fetches of each parent chunk out
	// concurrently instead of walking them one at a time.
	QuickMode bool

	// AtBlock optionally pins every range query to a block hash.
	// Empty means chain head.
	AtBlock string

	// Paths of the run's artifacts.
	Binary       string
	RuntimePath  string
	MetadataPath string
	SnapshotPath string
	OriginalPath string
	ForkedPath   string
	OutputPath   string
}

// DefaultConfig returns the conventional artifact layout under dir.
func DefaultConfig(dir string) Config {
	return Config{
		ChunkLevels:  1,
		Binary:       filepath.Join(dir, "binaries", "chain-binary"),
		RuntimePath:  filepath.Join(dir, "runtime.wasm"),
		MetadataPath: filepath.Join(dir, "metadata.json"),
		SnapshotPath: filepath.Join(dir, "storage.json"),
		OriginalPath: filepath.Join(dir, "genesis.json"),
		ForkedPath:   filepath.Join(dir, "fork-template.json"),
		OutputPath:   filepath.Join(dir, "fork.json"),
	}
}
