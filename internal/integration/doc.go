// Package integration runs the control plane against a real container
// runtime.
//
// Integration tests are skipped unless FORAGE_VPS_INTEGRATION_TESTS=1. They
// need docker or podman on PATH and pull the image named by
// FORAGE_VPS_IT_IMAGE (default alpine:3.20). Tests that issue tmate
// credentials also need outbound network access from the sandbox and are
// gated by FORAGE_VPS_TMATE_TESTS=1.
//
//	func TestMyIntegration(t *testing.T) {
//	    h := integration.NewHarness(t) // skips when disabled
//	    rec, err := h.App.Controller.Deploy(ctx, integration.AdminID, req)
//	    // Containers named by h.Name are removed via t.Cleanup.
//	}
//
// # Running Integration Tests
//
//	FORAGE_VPS_INTEGRATION_TESTS=1 go test -v ./internal/integration/...
package integration
