package tapaudit

// Defaults for Config.
const (
	DefaultFingerSize      = 48
	DefaultMaxOverlapRatio = 0.25
)

// Config holds the audit policy constants.
type Config struct {
	// FingerSize is both the minimum comfortable target dimension and the
	// side of the simulated finger square, in px. Default: 48.
	FingerSize float64 `json:"finger_size" yaml:"finger_size"`

	// MaxOverlapRatio is the smallest overlap score ratio reported as a
	// failure. Default: 0.25. Zero or negative values take the default, so a
	// threshold of 0 cannot be configured.
	MaxOverlapRatio float64 `json:"max_overlap_ratio" yaml:"max_overlap_ratio"`
}

func (c *Config) defaults() {
	if c.FingerSize <= 0 {
		c.FingerSize = DefaultFingerSize
	}
	if c.MaxOverlapRatio <= 0 {
		c.MaxOverlapRatio = DefaultMaxOverlapRatio
	}
}
