package fork

const (
	// CodeKey is the hex encoding of the well-known ":code" storage
	// key holding the runtime blob.
	CodeKey = "0x3a636f6465"

	// systemPrefixHex is the hex encoding of: Twox128("System")
	systemPrefixHex = "0x26aa394eea5630e07c48ae0c9558cef7"

	// SystemAccountPrefix is the hex encoding of:
	// Twox128("System") + Twox128("Account"), the account storage map
	// pinned into the prefix set regardless of metadata.
	SystemAccountPrefix = systemPrefixHex + "b99d880ec681799c0cf30e8886371da9"
)
