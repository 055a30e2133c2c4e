// Package watcher keeps a vault index fresh while files change.
//
// A VaultWatcher reports debounced batches of changes to canvas and
// markdown files, using fsnotify where available and polling otherwise
// (synced or network-mounted vaults often deliver no change events).
// A Reindexer turns those batches into rebuilds, one at a time.
//
// Usage:
//
//	w, err := watcher.NewVaultWatcher(watcher.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//	go w.Start(ctx, vaultPath)
//
//	r := watcher.NewReindexer(w, func(ctx context.Context, _ []watcher.FileEvent) error {
//	    _, err := eng.IndexVault(ctx, engine.IndexVaultRequest{VaultPath: vaultPath, Force: true})
//	    return err
//	}, nil)
//	return r.Run(ctx)
package watcher
