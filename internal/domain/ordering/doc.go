// Package ordering contains the Ordering bounded context.
// This context is responsible for mirrored order data (orders, order items,
// item options, companies), the denormalized order detail used by receipt
// printing, and the domain events the back-office core emits to its
// observers.
package ordering
