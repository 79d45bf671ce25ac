// Package sandbox provisions and operates sandboxes for forage-vps.
//
// A Provisioner sits between the lifecycle controller and the container
// runtime. It enforces name uniqueness across the session store and the
// runtime, applies resource limits, and translates runtime failures into
// the error taxonomy:
//
//	p := sandbox.NewProvisioner(store, rt, sandbox.Options{DefaultImage: "ubuntu:22.04"})
//
//	h, err := p.Create(ctx, sandbox.CreateOptions{
//	    Name:   "box1",
//	    Limits: session.Limits{RAMMB: 1024, CPUCores: 1, DiskGB: 10},
//	})
//
// Start, Stop and Restart report NotFound when the runtime has no sandbox
// for the name, so the caller can drop the stale record. Delete is
// idempotent and removes both the container and the record. Destroy is the
// runtime-only teardown used to roll back a failed deploy.
package sandbox
