// Package testutil provides a wired forage-vps environment for tests.
//
// NewTestEnv builds an app.App over a mock container runtime and a session
// store in a temporary state directory. The mock runtime answers tmate
// commands through a FakeTmate, so the whole deploy and credential flow
// runs without containers:
//
//	env := testutil.NewTestEnv(t)
//	rec, err := env.Controller.Deploy(ctx, testutil.AdminID, lifecycle.DeployRequest{
//	    Name:   "box1",
//	    Limits: session.Limits{RAMMB: 512, CPUCores: 1, DiskGB: 5},
//	    Owner:  "42",
//	})
//
// Failure modes are switched on the fake:
//
//	env.Tmate.SetFailing(true)     // every read reports "no server running"
//	env.Tmate.SetPendingReads(3)   // three empty reads before the link appears
package testutil
