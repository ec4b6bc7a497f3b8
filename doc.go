// Package ferry runs file downloads and uploads in the background and
// delivers their events on a single owner goroutine.
//
// Each transfer runs on its own goroutine. Started, progress, completion and
// failure notifications are queued per transfer and handed to the
// application's owner goroutine (a render or logic loop) through a
// Scheduler, so callbacks can touch application state without locking.
//
// # Basic Usage
//
// Initialize the shared engine state once per process, create a client and
// drive its loop from the owner goroutine:
//
//	ferry.Init()
//	defer ferry.Cleanup()
//
//	client, err := ferry.NewClient()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	_, err = client.Download("https://example.com/file.bin", "file.bin", ferry.DownloadCallbacks{
//	    OnProgress: func(url, savePath string, total, downloaded int64, userData any) {
//	        fmt.Printf("%d/%d\n", downloaded, total)
//	    },
//	    OnCompleted: func(url, savePath string, userData any) {
//	        fmt.Println("done")
//	    },
//	}, nil)
//
//	// Run callbacks on this goroutine until every transfer is finished.
//	err = client.Wait(ctx)
//
// Applications with their own main loop call client.Loop().Drain() once per
// frame instead, or supply their own Scheduler with WithScheduler.
//
// # Event Order
//
// For every transfer, callbacks arrive in the order Started, Progress (zero
// or more), then exactly one of Completed or Failed. Progress is cumulative;
// a total of -1 means the size is unknown. There is no ordering between
// different transfers.
//
// # URLs
//
// http and https URLs are fetched and sent with plain GET and PUT requests.
// oci://host/repository:tag URLs move the file as the single layer of an OCI
// artifact in a container registry.
//
// # Authentication
//
// Uploads accept "user:password" credentials. Other requests resolve
// credentials from Docker config (~/.docker/config.json) and credential
// helpers. Override with WithCredentialStore.
package ferry
