package gpu

import (
	"fmt"
	"log"

	"github.com/cockroachdb/errors"
)

// Extension and layer names understood by the model. Windowing integrations
// report which of the surface extensions they need via
// Windower.RequiredExtensions.
const (
	SurfaceExtensionName        = "VK_KHR_surface"
	XlibSurfaceExtensionName    = "VK_KHR_xlib_surface"
	WaylandSurfaceExtensionName = "VK_KHR_wayland_surface"
	Win32SurfaceExtensionName   = "VK_KHR_win32_surface"
	MetalSurfaceExtensionName   = "VK_EXT_metal_surface"
	DebugUtilsExtensionName     = "VK_EXT_debug_utils"

	// SwapchainExtensionName is a device-level extension and must be
	// requested in DeviceOptions.ExtensionNames before CreateSwapchain.
	SwapchainExtensionName = "VK_KHR_swapchain"

	ValidationLayerName = "VK_LAYER_KHRONOS_validation"
)

var instanceExtensions = map[string]bool{
	SurfaceExtensionName:        true,
	XlibSurfaceExtensionName:    true,
	WaylandSurfaceExtensionName: true,
	Win32SurfaceExtensionName:   true,
	MetalSurfaceExtensionName:   true,
	DebugUtilsExtensionName:     true,
}

var instanceLayers = map[string]bool{
	ValidationLayerName: true,
}

// AvailableExtensions reports the instance extensions this implementation
// supports.
func AvailableExtensions() map[string]bool {
	out := make(map[string]bool, len(instanceExtensions))
	for k, v := range instanceExtensions {
		out[k] = v
	}
	return out
}

// AvailableLayers reports the instance layers this implementation supports.
func AvailableLayers() map[string]bool {
	out := make(map[string]bool, len(instanceLayers))
	for k, v := range instanceLayers {
		out[k] = v
	}
	return out
}

// DebugSeverity classifies messages delivered to a DebugFunc.
type DebugSeverity int

const (
	DebugInfo DebugSeverity = iota
	DebugWarning
	DebugError
)

func (s DebugSeverity) String() string {
	switch s {
	case DebugInfo:
		return "INFO"
	case DebugWarning:
		return "WARNING"
	case DebugError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// DebugFunc receives diagnostic messages from the implementation, the way a
// debug-utils messenger callback would.
type DebugFunc func(severity DebugSeverity, message string)

type InstanceOptions struct {
	ApplicationName string
	EngineName      string

	ExtensionNames []string
	LayerNames     []string

	// Debug receives diagnostics. When nil, warnings and errors go to the
	// standard logger.
	Debug DebugFunc
}

// Instance is the root object. It validates requested extensions and layers
// at creation and enumerates the physical devices of the model.
type Instance struct {
	appName    string
	extensions map[string]bool
	layers     map[string]bool
	debug      DebugFunc

	physicalDevices []*PhysicalDevice
}

func CreateInstance(o InstanceOptions) (*Instance, error) {
	for _, ext := range o.ExtensionNames {
		if !instanceExtensions[ext] {
			return nil, errors.Wrapf(ErrExtensionNotPresent, "createInstance: %s", ext)
		}
	}
	for _, layer := range o.LayerNames {
		if !instanceLayers[layer] {
			return nil, errors.Wrapf(ErrLayerNotPresent, "createInstance: %s", layer)
		}
	}

	instance := &Instance{
		appName:    o.ApplicationName,
		extensions: make(map[string]bool, len(o.ExtensionNames)),
		layers:     make(map[string]bool, len(o.LayerNames)),
		debug:      o.Debug,
	}
	for _, ext := range o.ExtensionNames {
		instance.extensions[ext] = true
	}
	for _, layer := range o.LayerNames {
		instance.layers[layer] = true
	}
	if instance.debug == nil {
		instance.debug = func(severity DebugSeverity, message string) {
			if severity >= DebugWarning {
				log.Printf("[%s] %s", severity, message)
			}
		}
	}

	instance.physicalDevices = []*PhysicalDevice{
		newPhysicalDevice(instance, "Model Adapter"),
	}

	return instance, nil
}

// PhysicalDevices enumerates the adapters visible to this instance.
func (i *Instance) PhysicalDevices() []*PhysicalDevice {
	out := make([]*PhysicalDevice, len(i.physicalDevices))
	copy(out, i.physicalDevices)
	return out
}

// HasExtension reports whether the instance was created with the named
// extension enabled.
func (i *Instance) HasExtension(name string) bool {
	return i.extensions[name]
}

// HasLayer reports whether the instance was created with the named layer
// enabled.
func (i *Instance) HasLayer(name string) bool {
	return i.layers[name]
}

func (i *Instance) debugf(severity DebugSeverity, format string, args ...interface{}) {
	i.debug(severity, fmt.Sprintf(format, args...))
}
