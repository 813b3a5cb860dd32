// Package health aggregates readiness checks.
//
// The proxy registers one check per dependency it needs to serve traffic,
// currently the client identity:
//
//	checker := health.New(5 * time.Second)
//	checker.RegisterCheck("client_identity", func(ctx context.Context) error {
//	    _, err := tls.CheckIdentity(identity)
//	    return err
//	})
//
//	if r := checker.CheckReadiness(ctx); !r.Ready() {
//	    log.Print(r.Err())
//	}
//
// Checks run concurrently, each bounded by the checker's timeout. Liveness
// needs no checks and is served directly by the /health handler.
package health
