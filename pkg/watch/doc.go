/*
Package watch provides the watch registry underlying every observable in ivy.

A Registry stores callbacks for one target and fires them synchronously, in
registration order, over a snapshot of the list: callbacks may add or dispose
watches on the same target reentrantly, and such changes only affect later
notifications. A Guard bounds how deep notification cascades may nest.

The registry does not detect watch cycles. A callback that writes back into the
value it watches, with no termination condition, recurses until the Guard trips.
*/
package watch
