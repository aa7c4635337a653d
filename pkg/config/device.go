package config

import (
	"fmt"
	"strings"
)

// Device is the hardware a local model runs on.
type Device string

const (
	DeviceCPU    Device = "cpu"
	DeviceCUDA   Device = "cuda"
	DeviceROCm   Device = "rocm"
	DeviceMetal  Device = "metal"
	DeviceVulkan Device = "vulkan"
)

// Devices lists every supported device.
var Devices = []Device{DeviceCPU, DeviceCUDA, DeviceROCm, DeviceMetal, DeviceVulkan}

// ParseDevice parses a device name case-insensitively.
func ParseDevice(s string) (Device, error) {
	d := Device(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Devices {
		if d == known {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown device %q (supported: %s)", s, deviceList())
}

// IsGPU reports whether the device is an accelerator.
func (d Device) IsGPU() bool {
	return d != DeviceCPU && d != ""
}

// String implements fmt.Stringer and pflag.Value.
func (d Device) String() string {
	return string(d)
}

// Set implements pflag.Value.
func (d *Device) Set(s string) error {
	parsed, err := ParseDevice(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Type implements pflag.Value.
func (d *Device) Type() string {
	return "device"
}

// UnmarshalText lets YAML and env values decode into a Device.
func (d *Device) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*d = DeviceCPU
		return nil
	}
	return d.Set(string(text))
}

func deviceList() string {
	names := make([]string, len(Devices))
	for i, d := range Devices {
		names[i] = string(d)
	}
	return strings.Join(names, ", ")
}
