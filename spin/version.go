package spin

// Version information for the spinlock runtime.
const (
	// Version is the current version of the spinlock runtime.
	Version = "0.1.0"

	// VersionMajor is the major version number.
	VersionMajor = 0

	// VersionMinor is the minor version number.
	VersionMinor = 1

	// VersionPatch is the patch version number.
	VersionPatch = 0
)

// Info provides runtime information about the spinlock runtime.
type Info struct {
	// Version is the runtime version string.
	Version string

	// MaxCPU is the largest supported CPU topology.
	MaxCPU int

	// CollectionEnabled reports whether lockstat collection is active.
	CollectionEnabled bool
}

// GetInfo returns information about the spinlock runtime.
//
// Example:
//
//	info := spin.GetInfo()
//	fmt.Printf("spinlock %s (up to %d CPUs)\n", info.Version, info.MaxCPU)
func GetInfo() Info {
	return Info{
		Version:           Version,
		MaxCPU:            MaxCPU,
		CollectionEnabled: CollectionEnabled(),
	}
}
