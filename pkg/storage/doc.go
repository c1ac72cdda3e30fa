// Package storage writes run artifacts into an output directory.
//
// Every write goes to a temporary file that is renamed over the target, so a
// crashed run never leaves a half-written report behind.
//
// Usage:
//
//	manager, err := storage.NewManager("./results")
//	if err != nil {
//	    return err
//	}
//	if err := manager.SaveJSON("following_feed_test_results.json", record); err != nil {
//	    return err
//	}
package storage
