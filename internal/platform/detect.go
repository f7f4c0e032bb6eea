package platform

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v4/host"
)

// RealDetector implements Detector using actual platform detection.
type RealDetector struct {
	// Socket overrides DefaultLibvirtSocket.
	Socket string
}

// NewDetector creates a new platform detector.
func NewDetector() Detector {
	return &RealDetector{}
}

// Detect reports the OS, architecture and hypervisor availability.
//
// gopsutil failures for the distro and virtualization fields are not fatal:
// those fields are informational and left empty. A cancelled context is.
func (d *RealDetector) Detect(ctx context.Context) (*Info, error) {
	info := &Info{
		OS:   runtime.GOOS,
		Arch: runtime.GOARCH,
	}

	if runtime.GOOS == "linux" {
		platform, _, _, err := host.PlatformInformationWithContext(ctx)
		if err == nil {
			info.Platform = strings.ToLower(strings.TrimSpace(platform))
		}

		system, role, err := host.VirtualizationWithContext(ctx)
		if err == nil {
			info.VirtualizationSystem = system
			info.VirtualizationRole = role
		}

		if ctx.Err() != nil {
			return nil, fmt.Errorf("platform detection cancelled: %w", ctx.Err())
		}
	}

	socket := d.Socket
	if socket == "" {
		socket = DefaultLibvirtSocket
	}
	if _, err := os.Stat(socket); err == nil {
		info.LibvirtSocket = socket
	}

	return info, nil
}

// StaticDetector returns a fixed Info. It is used when detection is not
// wanted, for instance with an in-memory filesystem.
type StaticDetector struct {
	Info *Info
	Err  error
}

func (s StaticDetector) Detect(ctx context.Context) (*Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Info, s.Err
}
