// Package service exposes the library provider operations.
//
// LibraryProvider is the single facade the transport layer talks to. It
// composes the catalog, the install pipeline and the account slot, and
// adds the provider-level operations that only need a thin layer over
// them: plugin info, install option descriptions, eulas, launch hooks,
// import of existing folders, refresh and update checks.
//
// Example Usage:
//
//	provider := service.NewLibraryProvider(appCtx, store, pipeline, service.Options{})
//	accepted, err := provider.Install(ctx, "game1", "", types.InstallOptions{})
//	if err != nil {
//	    return err
//	}
//	// progress arrives on appCtx.Bus
package service
