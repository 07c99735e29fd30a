package rules

import "github.com/louisbranch/rulesheet/internal/platform/config"

// DefaultMaxDepth bounds how many entries one evaluation may pass through.
const DefaultMaxDepth = 64

// Limits bounds the work a single evaluation may do.
type Limits struct {
	MaxDepth int `env:"MAX_DEPTH" envDefault:"64"`
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{MaxDepth: DefaultMaxDepth}
}

// LoadLimits reads limits from RULESHEET_-prefixed environment variables.
func LoadLimits() (Limits, error) {
	var l Limits
	if err := config.Load(&l); err != nil {
		return Limits{}, err
	}
	return l.normalized(), nil
}

func (l Limits) normalized() Limits {
	if l.MaxDepth <= 0 {
		l.MaxDepth = DefaultMaxDepth
	}
	return l
}
