package fork

import (
	"encoding/json"
	"fmt"
	"os"
)

// Override is one fixed adjustment applied to the forked spec after
// the storage transplant, so it always wins over transplanted values.
// The target key is either Key verbatim, or Twox128(Module)+
// Twox128(Item) when Key is empty. Delete removes the key (a no-op
// when absent); otherwise Value is written.
type Override struct {
	Module string `json:"module,omitempty"`
	Item   string `json:"item,omitempty"`
	Key    string `json:"key,omitempty"`
	Value  string `json:"value,omitempty"`
	Delete bool   `json:"delete,omitempty"`
}

// StorageKey resolves the override's target storage key.
func (o Override) StorageKey() string {
	if o.Key != "" {
		return o.Key
	}
	return BytesToHex(append(Twox128([]byte(o.Module)), Twox128([]byte(o.Item))...))
}

// DefaultOverrides returns the test-environment adjustments shipped
// with the tool. Treated as configuration data; a run may replace
// them wholesale via LoadOverrides.
func DefaultOverrides() []Override {
	return []Override{
		// Freeze era rotation so the validator set cannot change
		// mid-test (ForceNone).
		{Module: "Staking", Item: "ForceEra", Value: "0x02"},
		// Retrigger the runtime upgrade hook on the fork's first
		// block.
		{Module: "System", Item: "LastRuntimeUpgrade", Delete: true},
		// Clear the pinned committee inherited from the source chain.
		{Module: "Staking", Item: "Invulnerables", Delete: true},
		// Lower the eligibility floor to one validator (u32 LE).
		{Module: "Staking", Item: "MinimumValidatorCount", Value: "0x01000000"},
	}
}

// LoadOverrides reads an override table from a JSON file.
func LoadOverrides(path string) ([]Override, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var overrides []Override
	if err := json.Unmarshal(data, &overrides); err != nil {
		return nil, err
	}
	return overrides, nil
}

// Splice mutates forked into the final genesis document:
//  1. identity rewrite: name and id get a "-fork" suffix from the
//     original, protocolId is copied outright;
//  2. every snapshot pair matching the prefix set is written into
//     genesis.raw.top, overwriting the template's value; pairs
//     matching no prefix are discarded;
//  3. overrides are applied after the transplant;
//  4. the runtime blob is injected under :code.
//
// Total over its inputs: past argument validation there are no
// partial failure modes.
func Splice(original, forked *GenesisSpec, snapshot []KeyValuePair, prefixes PrefixSet, runtimeHex string, overrides []Override) error {
	if original == nil || forked == nil {
		return fmt.Errorf("%w: nil spec", ErrMalformedSpec)
	}
	if err := checkHex(runtimeHex); err != nil {
		return fmt.Errorf("runtime blob: %w", err)
	}

	forked.Name = original.Name + "-fork"
	forked.ID = original.ID + "-fork"
	forked.ProtocolID = original.ProtocolID

	top := forked.Genesis.Raw.Top
	if top == nil {
		top = make(map[string]string)
		forked.Genesis.Raw.Top = top
	}

	for _, pair := range snapshot {
		if prefixes.Matches(pair.Key) {
			top[pair.Key] = pair.Value
		}
	}

	for _, o := range overrides {
		key := o.StorageKey()
		if o.Delete {
			delete(top, key)
			continue
		}
		top[key] = o.Value
	}

	top[CodeKey] = runtimeHex
	return nil
}

// ReadSpec loads a genesis spec document from a JSON file. A parse
// failure is fatal for the whole splice; nothing is mutated on error.
func ReadSpec(path string) (*GenesisSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var spec GenesisSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("%s: %v: %w", path, err, ErrMalformedSpec)
	}
	return &spec, nil
}

// WriteSpec serializes a spec document pretty-printed with 4-space
// indent, overwriting any prior output.
func WriteSpec(path string, spec *GenesisSpec) error {
	data, err := json.MarshalIndent(spec, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
