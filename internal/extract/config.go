package extract

// Config carries the naming and clearance parameters of an analysis run.
// The zero value is not usable; start from DefaultConfig.
type Config struct {
	// Namespace is recorded with published artifacts so a downstream
	// serializer can qualify record references.
	Namespace string `json:"namespace" yaml:"namespace"`

	// TrackerVolume is the top-level volume uncategorised supports
	// attach to.
	TrackerVolume string `json:"trackerVolume" yaml:"trackerVolume"`
	// BarrelVolume is the parent volume of barrel layers, barrel
	// services and barrel-side supports. Its solid is the barrel
	// polycone.
	BarrelVolume string `json:"barrelVolume" yaml:"barrelVolume"`
	// EndcapVolume is the parent volume of endcap discs, endcap
	// services and endcap supports. Its solid is the endcap polycone.
	EndcapVolume string `json:"endcapVolume" yaml:"endcapVolume"`

	// Epsilon is the clearance margin in mm added around container
	// volumes so children never touch their parent's surface.
	Epsilon float64 `json:"epsilon" yaml:"epsilon"`

	// EndcapZOffset is the axial distance in mm between the global
	// frame and the endcap volume's own frame; disc placements and the
	// endcap polycone are shifted by it.
	EndcapZOffset float64 `json:"endcapZOffset" yaml:"endcapZOffset"`
}

// DefaultConfig returns the standard outer-tracker configuration.
func DefaultConfig() Config {
	return Config{
		Namespace:     "tracker",
		TrackerVolume: "Tracker",
		BarrelVolume:  "OTBarrel",
		EndcapVolume:  "OTForward",
		Epsilon:       0.01,
		EndcapZOffset: 325.0,
	}
}
