// Package api serves the lifecycle operations over HTTP.
//
// The API is meant to sit behind a trusted front end, which identifies the
// acting user in the X-Forage-Caller header. Routes:
//
//	GET    /healthz                           liveness
//	POST   /v1/resources                      deploy
//	GET    /v1/resources                      list
//	GET    /v1/resources/{name}               get (reconciled)
//	DELETE /v1/resources/{name}               delete
//	POST   /v1/resources/{name}/start         start
//	POST   /v1/resources/{name}/stop          stop
//	POST   /v1/resources/{name}/restart       restart
//	POST   /v1/resources/{name}/credential    regenerate credential
//	GET    /v1/resources/{name}/health        sandbox health
//	GET    /v1/resources/{name}/events        audit events
//	POST   /v1/gc?apply=true                  reconcile store and runtime
//
// Errors are returned as {"error":{"kind":...,"message":...}} with a status
// derived from the error kind.
package api
