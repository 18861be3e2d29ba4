package native

import (
	"time"

	"github.com/gogpu/gputypes"
)

// Config configures a native device. Zero fields take defaults.
type Config struct {
	// Backend selects the HAL backend. Default: Vulkan.
	Backend gputypes.Backend

	// MaxThreadsPerGroup caps the reported group size below the adapter
	// limit. Zero uses the adapter limit.
	MaxThreadsPerGroup int

	// ExecutionWidth is the SIMD width used for tile selection. WebGPU does
	// not expose subgroup size without extensions. Default: 32.
	ExecutionWidth int

	// ReadbackTimeout bounds how long ReadTexture waits. Default: 5s.
	ReadbackTimeout time.Duration

	// MaxInFlight bounds outstanding submissions before Commit waits for
	// the oldest. Default: 8.
	MaxInFlight int
}

const (
	defaultExecutionWidth  = 32
	defaultReadbackTimeout = 5 * time.Second
	defaultMaxInFlight     = 8
	defaultWorkgroupSide   = 8
)

func (c *Config) applyDefaults() {
	if c.Backend == 0 {
		c.Backend = gputypes.BackendVulkan
	}
	if c.ExecutionWidth <= 0 {
		c.ExecutionWidth = defaultExecutionWidth
	}
	if c.ReadbackTimeout <= 0 {
		c.ReadbackTimeout = defaultReadbackTimeout
	}
	if c.MaxInFlight <= 0 {
		c.MaxInFlight = defaultMaxInFlight
	}
}

// maxThreads is the effective group size limit.
func (c *Config) maxThreads(adapter groupLimits) int {
	if c.MaxThreadsPerGroup > 0 && c.MaxThreadsPerGroup < adapter.maxInvocations {
		return c.MaxThreadsPerGroup
	}
	return adapter.maxInvocations
}
