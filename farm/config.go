// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package farm

// Config is the configurable parameters of the farm. The defaults are used by production deployments,
// custom networks may shorten the lock period for testing.

var (
	maxLockDuration uint64 = 365 * 24 * 3600 // one year in clock units (seconds)

	locked bool
)

type Config struct {
	MaxLockDuration uint64 `json:"maxLockDuration" yaml:"maxLockDuration"` // longest lock, earns YearStakeWeightMultiplier
}

// SetConfig sets the config.
// If the config is not set, the default values will be used.
// If the config is locked, will panic.
func SetConfig(cfg Config) {
	if locked {
		panic("config is locked, cannot be set")
	}

	if cfg.MaxLockDuration != 0 {
		maxLockDuration = cfg.MaxLockDuration
	}
}

// LockConfig prevents any further SetConfig calls.
func LockConfig() {
	locked = true
}

// MaxLockDuration returns the longest lock a deposit may commit to.
func MaxLockDuration() uint64 {
	return maxLockDuration
}

// GetConfig returns the current config.
func GetConfig() Config {
	return Config{
		MaxLockDuration: maxLockDuration,
	}
}
