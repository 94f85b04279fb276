package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/core"
)

// DeviceInfo describes the GPU adapter selected by [openDevice].
type DeviceInfo struct {
	Name       string
	Vendor     string
	DeviceType string
	Backend    string
	Driver     string
}

// String returns a human-readable description of the GPU.
func (d *DeviceInfo) String() string {
	return fmt.Sprintf("%s (%s, %s)", d.Name, d.DeviceType, d.Backend)
}

// deviceHandles bundles the wgpu resources that make up a logical device.
type deviceHandles struct {
	instance *core.Instance
	adapter  core.AdapterID
	device   core.DeviceID
	queue    core.QueueID
	info     *DeviceInfo
}

// openDevice creates an instance, requests a high-performance adapter, and
// opens a logical device and queue on it. Callers must eventually call
// closeDevice to release the resources.
func openDevice(label string) (*deviceHandles, error) {
	instance := core.NewInstance(&gputypes.InstanceDescriptor{
		Backends: gputypes.BackendsPrimary,
	})

	adapterID, err := instance.RequestAdapter(&gputypes.RequestAdapterOptions{
		PowerPreference: gputypes.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoGPU, err)
	}

	info, err := getDeviceInfo(adapterID)
	if err != nil {
		slogger().Warn("gpu: failed to query adapter info", "error", err)
	}

	deviceID, err := core.RequestDevice(adapterID, &gputypes.DeviceDescriptor{
		Label:            label,
		RequiredFeatures: nil,
		RequiredLimits:   gputypes.DefaultLimits(),
	})
	if err != nil {
		_ = core.AdapterDrop(adapterID)
		return nil, fmt.Errorf("device creation failed: %w", err)
	}

	queueID, err := core.GetDeviceQueue(deviceID)
	if err != nil {
		_ = core.DeviceDrop(deviceID)
		_ = core.AdapterDrop(adapterID)
		return nil, fmt.Errorf("queue retrieval failed: %w", err)
	}

	return &deviceHandles{
		instance: instance,
		adapter:  adapterID,
		device:   deviceID,
		queue:    queueID,
		info:     info,
	}, nil
}

// getDeviceInfo retrieves adapter metadata for logging and capability checks.
func getDeviceInfo(adapterID core.AdapterID) (*DeviceInfo, error) {
	info, err := core.GetAdapterInfo(adapterID)
	if err != nil {
		return nil, fmt.Errorf("failed to get adapter info: %w", err)
	}
	return &DeviceInfo{
		Name:       info.Name,
		Vendor:     info.Vendor,
		DeviceType: fmt.Sprintf("%v", info.DeviceType),
		Backend:    fmt.Sprintf("%v", info.Backend),
		Driver:     info.Driver,
	}, nil
}

// baselineWorkgroupSize is the WebGPU minimum guaranteed workgroup size in
// each dimension. Querying the real per-adapter maximum would require a
// device-limits API this codebase does not otherwise exercise, so the
// native adapter advertises this conservative baseline instead.
var baselineWorkgroupSize = [3]uint32{256, 256, 64}

// deviceMaxBufferSize reads the maximum buffer size of an opened device.
func deviceMaxBufferSize(deviceID core.DeviceID) (uint64, error) {
	limits, err := core.GetDeviceLimits(deviceID)
	if err != nil {
		return 0, fmt.Errorf("failed to get device limits: %w", err)
	}
	return limits.MaxBufferSize, nil
}

// closeDevice releases device, adapter, and instance resources in order.
func closeDevice(h *deviceHandles) {
	if h == nil {
		return
	}
	if !h.device.IsZero() {
		if err := core.DeviceDrop(h.device); err != nil {
			slogger().Warn("gpu: error releasing device", "error", err)
		}
	}
	if !h.adapter.IsZero() {
		if err := core.AdapterDrop(h.adapter); err != nil {
			slogger().Warn("gpu: error releasing adapter", "error", err)
		}
	}
}
