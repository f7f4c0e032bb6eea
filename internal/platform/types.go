// Package platform detects whether the local machine can act as a kvirt
// client on its own, that is whether a libvirt daemon is reachable locally.
//
// Detection is used only when no configuration document exists: in that case
// a local kvm client is fabricated when a hypervisor is present and startup
// fails otherwise.
package platform

import "context"

// DefaultLibvirtSocket is the local libvirt daemon socket.
const DefaultLibvirtSocket = "/var/run/libvirt/libvirt-sock"

// Info contains platform detection information.
type Info struct {
	OS       string // "linux", "darwin", ...
	Arch     string // GOARCH
	Platform string // distro ID on Linux, e.g. "fedora"

	VirtualizationSystem string // e.g. "kvm", "xen", empty when unknown
	VirtualizationRole   string // "host" or "guest"

	LibvirtSocket string // socket path when present, empty otherwise
}

// HasLocalHypervisor reports whether a local libvirt daemon was found.
func (i *Info) HasLocalHypervisor() bool {
	return i != nil && i.LibvirtSocket != ""
}

// IsVirtualized reports whether the machine itself runs as a guest.
func (i *Info) IsVirtualized() bool {
	return i != nil && i.VirtualizationRole == "guest"
}

// Detector is the interface for platform detection.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}
