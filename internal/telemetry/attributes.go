// SPDX-License-Identifier: MIT

// Package telemetry provides OpenTelemetry tracing utilities for the overlay.
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	// HTTP attributes, for the control-surface exporter's HTTP path.
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"
	HTTPUserAgentKey  = "http.user_agent"

	// Vulkan instance/device attributes.
	VkEngineNameKey       = "vk.engine_name"
	VkApplicationNameKey  = "vk.application_name"
	VkExtensionsAddedKey  = "vk.extensions_added"
	VkInstanceHandleKey   = "vk.instance_handle"
	VkDeviceHandleKey     = "vk.device_handle"

	// Swapchain attributes.
	VkSwapchainWidthKey      = "vk.swapchain.width"
	VkSwapchainHeightKey     = "vk.swapchain.height"
	VkSwapchainImageCountKey = "vk.swapchain.image_count"

	// Blacklist-decision attributes.
	BlacklistReasonKey      = "blacklist.reason"
	BlacklistDecisionKey    = "blacklist.blacklisted"
	BlacklistProcessExeKey  = "blacklist.exe"

	// Config-reload attributes.
	ConfigReloadEpochKey = "config.reload.epoch"
	ConfigReloadOKKey    = "config.reload.ok"

	// Error attributes.
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// InstanceAttributes creates span attributes for a CreateInstance call,
// per SPEC_FULL.md §4.7's diagnostic tracing.
func InstanceAttributes(engineName, applicationName string, extensionsAdded int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(VkEngineNameKey, engineName),
		attribute.String(VkApplicationNameKey, applicationName),
		attribute.Int(VkExtensionsAddedKey, extensionsAdded),
	}
}

// DeviceAttributes creates span attributes for a CreateDevice call.
func DeviceAttributes(instance uint64, extensionsAdded int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64(VkInstanceHandleKey, int64(instance)),
		attribute.Int(VkExtensionsAddedKey, extensionsAdded),
	}
}

// SwapchainAttributes creates span attributes for a CreateSwapchainKHR call.
func SwapchainAttributes(device uint64, width, height uint32, imageCount int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64(VkDeviceHandleKey, int64(device)),
		attribute.Int(VkSwapchainWidthKey, int(width)),
		attribute.Int(VkSwapchainHeightKey, int(height)),
		attribute.Int(VkSwapchainImageCountKey, imageCount),
	}
}

// BlacklistDecisionAttributes creates span attributes for a blacklist
// resolution, reason being "basename", "gtk_library", or "" when allowed.
func BlacklistDecisionAttributes(exe, reason string, blacklisted bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(BlacklistProcessExeKey, exe),
		attribute.String(BlacklistReasonKey, reason),
		attribute.Bool(BlacklistDecisionKey, blacklisted),
	}
}

// ConfigReloadAttributes creates span attributes for a config hot-reload.
func ConfigReloadAttributes(epoch uint64, ok bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64(ConfigReloadEpochKey, int64(epoch)),
		attribute.Bool(ConfigReloadOKKey, ok),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
