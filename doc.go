// Package auraclient is the resilient request layer driving the Aura video
// backend: every per-endpoint wrapper funnels through one Client that
// composes:
//
//   - Circuit breaking per scope key, with state durably persisted across
//     process restarts (open / half-open / closed)
//   - Retries with exponential backoff, capped and deterministic by default
//   - In-flight de-duplication of identical mutating calls
//   - Rate-limited FIFO queueing with enforced minimum spacing per key
//   - Correlation-id propagation across every retry of a logical call
//   - Prometheus metrics and lightweight structured debug logging
//
// Design goals:
//   - Small surface area: functional options configure everything
//   - No ambient state: breaker registry, persistence and clock are owned by
//     the Client and injectable for tests
//   - Safe concurrent use of a single *Client instance
//
// Typical usage:
//
//	store, _ := auraclient.NewBadgerStateStore(auraclient.BadgerStoreOptions{Path: dir})
//	client := auraclient.New(
//	    auraclient.WithCircuitStateStore(store),
//	    auraclient.WithRequestQueue(time.Second),
//	    auraclient.WithMetrics(),
//	)
//	resp, err := client.Post(ctx, url, payload, nil)
//
// Rate limiting and slow-request statuses (408, 429) are retried but never
// counted against circuit health; 5xx and transport failures are retried and
// counted; other 4xx are neither. Health probes use Ping (or
// RequestOptions.BypassCircuitBreaker) so recovery is detectable while the
// circuit is open.
package auraclient
