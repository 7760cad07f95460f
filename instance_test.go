package gpu

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateInstanceValidatesExtensions(t *testing.T) {
	_, err := CreateInstance(InstanceOptions{
		ExtensionNames: []string{"VK_KHR_nonexistent"},
	})
	require.ErrorIs(t, err, ErrExtensionNotPresent)
	require.Contains(t, err.Error(), "VK_KHR_nonexistent")

	_, err = CreateInstance(InstanceOptions{
		LayerNames: []string{"VK_LAYER_bogus"},
	})
	require.ErrorIs(t, err, ErrLayerNotPresent)
	require.Contains(t, err.Error(), "VK_LAYER_bogus")

	instance, err := CreateInstance(InstanceOptions{
		ApplicationName: "test",
		ExtensionNames:  []string{SurfaceExtensionName, DebugUtilsExtensionName},
		LayerNames:      []string{ValidationLayerName},
	})
	require.NoError(t, err)
	require.True(t, instance.HasExtension(SurfaceExtensionName))
	require.False(t, instance.HasExtension(XlibSurfaceExtensionName))
	require.True(t, instance.HasLayer(ValidationLayerName))
}

func TestInstanceDebugCallback(t *testing.T) {
	var got []string
	instance, err := CreateInstance(InstanceOptions{
		Debug: func(severity DebugSeverity, message string) {
			got = append(got, severity.String()+": "+message)
		},
	})
	require.NoError(t, err)

	instance.debugf(DebugWarning, "image %d not delivered", 3)
	require.Equal(t, []string{"WARNING: image 3 not delivered"}, got)
}

func TestPhysicalDeviceEnumeration(t *testing.T) {
	env := newTestEnv(t)

	devices := env.instance.PhysicalDevices()
	require.NotEmpty(t, devices)

	families := devices[0].QueueFamilyProperties()
	require.NotEmpty(t, families)
	require.NotZero(t, families[0].Flags&QueueGraphics)

	ok, err := devices[0].SupportsSurface(0, env.surface)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCreateSurfaceRequiresExtensions(t *testing.T) {
	instance, err := CreateInstance(InstanceOptions{})
	require.NoError(t, err)

	_, err = instance.CreateSurface(newTestWindow())
	require.ErrorIs(t, err, ErrExtensionNotPresent)
}

func TestSurfaceLostQueries(t *testing.T) {
	env := newTestEnv(t)

	caps, err := env.surface.Capabilities(env.physical)
	require.NoError(t, err)
	require.Equal(t, Extent2D{Width: 640, Height: 480}, caps.CurrentExtent)
	require.GreaterOrEqual(t, caps.MinImageCount, 1)

	formats, err := env.surface.Formats(env.physical)
	require.NoError(t, err)
	require.NotEmpty(t, formats)
	modes, err := env.surface.PresentModes(env.physical)
	require.NoError(t, err)
	require.Contains(t, modes, PresentFIFO)

	env.window.close()

	_, err = env.surface.Capabilities(env.physical)
	require.ErrorIs(t, err, ErrSurfaceLost)
	_, err = env.surface.Formats(env.physical)
	require.ErrorIs(t, err, ErrSurfaceLost)
	_, err = env.surface.PresentModes(env.physical)
	require.ErrorIs(t, err, ErrSurfaceLost)
}
