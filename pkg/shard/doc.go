/*
Package shard serializes mutations per shard.

A Manager hands out one mutex per shard id, reference counted so that idle shards
leave nothing behind. When a ports.DistributedLocker is configured, the same shard
is also locked across replicas for the duration of the mutation.
*/
package shard
