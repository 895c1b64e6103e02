// Package resource throttles background catalog work.
//
// A Controller bounds three things:
//
//   - Workers: how many indexes are rebuilt concurrently by Refresh
//   - Objects: how many objects per second are reindexed
//   - IO: how many snapshot bytes per second are read or written
//
// Usage:
//
//	rc := resource.NewController(resource.Config{
//	    MaxWorkers:       4,
//	    ObjectsPerSecond: 5000,
//	})
//
//	if err := rc.AcquireWorker(ctx); err != nil {
//	    return err
//	}
//	defer rc.ReleaseWorker()
//
//	for obj := range objects {
//	    if err := rc.WaitObjects(ctx, 1); err != nil {
//	        return err
//	    }
//	    ...
//	}
//
// All methods are safe for concurrent use and are no-ops on a nil
// Controller.
package resource
