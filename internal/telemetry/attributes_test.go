// SPDX-License-Identifier: MIT
package telemetry

import (
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestHTTPAttributes(t *testing.T) {
	attrs := HTTPAttributes("GET", "/metrics", "http://localhost:8080/metrics", 200)

	if len(attrs) != 4 {
		t.Fatalf("Expected 4 attributes, got %d", len(attrs))
	}

	verifyAttribute(t, attrs, HTTPMethodKey, "GET")
	verifyAttribute(t, attrs, HTTPRouteKey, "/metrics")
	verifyAttribute(t, attrs, HTTPURLKey, "http://localhost:8080/metrics")
	verifyIntAttribute(t, attrs, HTTPStatusCodeKey, 200)
}

func TestInstanceAttributes(t *testing.T) {
	attrs := InstanceAttributes("UnrealEngine4", "shooter.exe", 2)

	if len(attrs) != 3 {
		t.Fatalf("Expected 3 attributes, got %d", len(attrs))
	}

	verifyAttribute(t, attrs, VkEngineNameKey, "UnrealEngine4")
	verifyAttribute(t, attrs, VkApplicationNameKey, "shooter.exe")
	verifyIntAttribute(t, attrs, VkExtensionsAddedKey, 2)
}

func TestDeviceAttributes(t *testing.T) {
	attrs := DeviceAttributes(42, 1)

	if len(attrs) != 2 {
		t.Fatalf("Expected 2 attributes, got %d", len(attrs))
	}

	verifyInt64Attribute(t, attrs, VkInstanceHandleKey, 42)
	verifyIntAttribute(t, attrs, VkExtensionsAddedKey, 1)
}

func TestSwapchainAttributes(t *testing.T) {
	attrs := SwapchainAttributes(7, 1920, 1080, 3)

	if len(attrs) != 4 {
		t.Fatalf("Expected 4 attributes, got %d", len(attrs))
	}

	verifyInt64Attribute(t, attrs, VkDeviceHandleKey, 7)
	verifyIntAttribute(t, attrs, VkSwapchainWidthKey, 1920)
	verifyIntAttribute(t, attrs, VkSwapchainHeightKey, 1080)
	verifyIntAttribute(t, attrs, VkSwapchainImageCountKey, 3)
}

func TestBlacklistDecisionAttributes(t *testing.T) {
	attrs := BlacklistDecisionAttributes("steam", "basename", true)

	if len(attrs) != 3 {
		t.Fatalf("Expected 3 attributes, got %d", len(attrs))
	}

	verifyAttribute(t, attrs, BlacklistProcessExeKey, "steam")
	verifyAttribute(t, attrs, BlacklistReasonKey, "basename")
	verifyBoolAttribute(t, attrs, BlacklistDecisionKey, true)
}

func TestConfigReloadAttributes(t *testing.T) {
	attrs := ConfigReloadAttributes(5, true)

	if len(attrs) != 2 {
		t.Fatalf("Expected 2 attributes, got %d", len(attrs))
	}

	verifyInt64Attribute(t, attrs, ConfigReloadEpochKey, 5)
	verifyBoolAttribute(t, attrs, ConfigReloadOKKey, true)
}

func TestErrorAttributes(t *testing.T) {
	attrs := ErrorAttributes(nil, "probe_failed")

	if len(attrs) != 2 {
		t.Fatalf("Expected 2 attributes, got %d", len(attrs))
	}

	verifyBoolAttribute(t, attrs, ErrorKey, true)
	verifyAttribute(t, attrs, ErrorTypeKey, "probe_failed")
}

func TestAttributeKeys_Consistency(t *testing.T) {
	keys := []string{
		HTTPMethodKey,
		HTTPStatusCodeKey,
		HTTPRouteKey,
		VkEngineNameKey,
		VkSwapchainWidthKey,
		BlacklistReasonKey,
		ConfigReloadEpochKey,
		ErrorKey,
	}

	for _, key := range keys {
		if key == "" {
			t.Errorf("Expected non-empty attribute key")
		}
	}
}

// Helper functions for attribute verification

func verifyAttribute(t *testing.T, attrs []attribute.KeyValue, key, expectedValue string) {
	t.Helper()
	for _, attr := range attrs {
		if string(attr.Key) == key {
			if attr.Value.AsString() != expectedValue {
				t.Errorf("Expected %s=%s, got %s", key, expectedValue, attr.Value.AsString())
			}
			return
		}
	}
	t.Errorf("Attribute %s not found", key)
}

func verifyIntAttribute(t *testing.T, attrs []attribute.KeyValue, key string, expectedValue int) {
	t.Helper()
	for _, attr := range attrs {
		if string(attr.Key) == key {
			if attr.Value.AsInt64() != int64(expectedValue) {
				t.Errorf("Expected %s=%d, got %d", key, expectedValue, attr.Value.AsInt64())
			}
			return
		}
	}
	t.Errorf("Attribute %s not found", key)
}

func verifyInt64Attribute(t *testing.T, attrs []attribute.KeyValue, key string, expectedValue int64) {
	t.Helper()
	for _, attr := range attrs {
		if string(attr.Key) == key {
			if attr.Value.AsInt64() != expectedValue {
				t.Errorf("Expected %s=%d, got %d", key, expectedValue, attr.Value.AsInt64())
			}
			return
		}
	}
	t.Errorf("Attribute %s not found", key)
}

func verifyBoolAttribute(t *testing.T, attrs []attribute.KeyValue, key string, expectedValue bool) {
	t.Helper()
	for _, attr := range attrs {
		if string(attr.Key) == key {
			if attr.Value.AsBool() != expectedValue {
				t.Errorf("Expected %s=%t, got %t", key, expectedValue, attr.Value.AsBool())
			}
			return
		}
	}
	t.Errorf("Attribute %s not found", key)
}
