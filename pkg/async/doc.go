// Package async runs fire-and-forget work off the request path.
//
// A Pool owns a fixed number of workers and a bounded queue. Submit never
// blocks: when the queue is full the task is refused with ErrQueueFull and
// counted as dropped. Each task runs under the pool timeout with panic
// recovery, and failures are logged rather than returned.
//
//	pool := async.NewPool("audit", 2, 256, 2*time.Second, logger)
//	defer pool.Shutdown(ctx)
//
//	pool.Submit(func(ctx context.Context) error {
//		return store.InsertAudit(ctx, entry)
//	})
//
// The audit logger in package auth uses a Pool so security events are
// persisted without delaying the response.
package async
