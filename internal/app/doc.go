// Package app wires the forage-vps components into a ready Controller.
//
// Construction order follows the dependency graph:
//
//	config -> runtime -> session store -> audit log
//	       -> credential broker -> provisioner -> lifecycle controller
//
// # Creating an App
//
// Use New with functional options:
//
//	// Production usage
//	cfg, err := config.Load(path)
//	a, err := app.New(app.WithConfig(cfg))
//
//	// Testing with custom dependencies
//	a, err := app.New(
//	    app.WithConfig(cfg),
//	    app.WithRuntime(runtime.NewMockRuntime()),
//	    app.WithStore(session.New(session.NewMemoryBackend())),
//	)
//
// # Available Options
//
//	WithConfig(cfg)               // Loaded configuration
//	WithRuntime(runtime)          // Custom container runtime
//	WithStore(store)              // Custom session store
//	WithCredentialOptions(opts)   // Override credential polling bounds
package app
