// Package app holds the process-wide application context.
//
// The context is built once at startup and owns the shared singletons: the
// process key pair, the account slot, the event bus, the logger, the
// metrics and the loaded configuration. Components receive the pieces they
// need at construction; nothing here is a package-level global.
//
// Example Usage:
//
//	appCtx, err := app.New(ctx, cfg, app.Options{Logger: logger})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer appCtx.Close()
//	pem := appCtx.Keys.PublicPEM()
package app
