// Package broadcast fans a single text message out to many chat targets.
//
// Delivery is best-effort and non-transactional: each recipient is attempted
// exactly once, failures are captured per-recipient in the returned Report,
// and one recipient's failure never aborts the rest of the batch. There are
// no retries and failed sends are not persisted.
package broadcast
