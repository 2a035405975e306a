package fork

import "errors"

// Common fork errors
var (
	// ErrMissingArtifact indicates a required input file (runtime
	// blob, chain binary) is absent before the run starts
	ErrMissingArtifact = errors.New("required artifact not found")

	// ErrRPCConnectionFailed indicates the RPC endpoint could not be
	// reached
	ErrRPCConnectionFailed = errors.New("RPC connection failed")

	// ErrInvalidHex indicates a storage key or value is not a valid
	// 0x-prefixed hex string
	ErrInvalidHex = errors.New("invalid hex string")

	// ErrMalformedSpec indicates a genesis spec document failed to
	// parse
	ErrMalformedSpec = errors.New("malformed genesis spec")

	// ErrNoMetadata indicates the module metadata document is absent
	// or empty
	ErrNoMetadata = errors.New("no module metadata")

	// ErrInvalidLevels indicates a negative chunk depth
	ErrInvalidLevels = errors.New("chunk levels must be >= 0")
)
