//go:build !nogpu

package native

// Registers every hal driver the platform supports.
import _ "github.com/gogpu/wgpu/hal/allbackends"
