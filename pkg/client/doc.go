/*
Package client provides a Go client library for the Fabrik cache gRPC
protocol.

It wraps fabrikpb's hand-authored service stubs with a convenient,
idiomatic Go interface: connection setup (plain or TLS), per-call timeouts,
and streaming helpers that buffer Get/Put chunks so callers work with plain
[]byte payloads.

	client, err := client.New("127.0.0.1:7070", client.Options{})
	data, err := client.Get(hash)
	resp, err := client.Put(hash, data)

fabrikctl is the primary consumer of this package.
*/
package client
