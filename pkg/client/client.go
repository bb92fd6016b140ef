// Package client implements the fabrikctl gRPC client against a running
// fabrikd instance, adapted from the CLI connection-setup idiom this
// module's client package originally used for mTLS, simplified to the
// optional-TLS-or-insecure dial fabrikctl needs.
package client

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/fabrikdev/fabrik/pkg/fabrikpb"
)

const defaultCallTimeout = 10 * time.Second

// Client wraps a Fabrik cache gRPC client for CLI usage.
type Client struct {
	conn   *grpc.ClientConn
	client fabrikpb.FabrikCacheClient
}

// Options configures how the client dials fabrikd.
type Options struct {
	// CACertPath, if set, enables TLS and verifies the server against it.
	// Empty means an insecure connection.
	CACertPath string
}

// New dials addr and returns a Client.
func New(addr string, opts Options) (*Client, error) {
	var creds credentials.TransportCredentials
	if opts.CACertPath != "" {
		tlsConfig, err := loadClientTLSConfig(opts.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("load TLS config: %w", err)
		}
		creds = credentials.NewTLS(tlsConfig)
	} else {
		creds = insecure.NewCredentials()
	}

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	return &Client{conn: conn, client: fabrikpb.NewFabrikCacheClient(conn)}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Exists reports whether an object with the given hex hash is cached.
func (c *Client) Exists(hash string) (*fabrikpb.ExistsResponse, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultCallTimeout)
	defer cancel()
	return c.client.Exists(ctx, &fabrikpb.ExistsRequest{Hash: hash})
}

// Get retrieves the full contents of a cached object, buffering the
// streamed chunks.
func (c *Client) Get(hash string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultCallTimeout)
	defer cancel()

	stream, err := c.client.Get(ctx, &fabrikpb.GetRequest{Hash: hash})
	if err != nil {
		return nil, err
	}

	var data []byte
	for {
		chunk, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		data = append(data, chunk.Chunk...)
	}
	return data, nil
}

// Put uploads data under hash, streaming it in 64KiB chunks.
func (c *Client) Put(hash string, data []byte) (*fabrikpb.PutResponse, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultCallTimeout)
	defer cancel()

	stream, err := c.client.Put(ctx)
	if err != nil {
		return nil, err
	}

	const chunkSize = 64 * 1024
	first := true
	for off := 0; off < len(data) || first; off += chunkSize {
		end := off + chunkSize
		if end > len(data) {
			end = len(data)
		}
		chunk := &fabrikpb.PutChunk{Chunk: data[off:end]}
		if first {
			chunk.Hash = hash
			first = false
		}
		if err := stream.Send(chunk); err != nil {
			return nil, err
		}
		if end == len(data) {
			break
		}
	}

	return stream.CloseAndRecv()
}

// Delete removes a cached object.
func (c *Client) Delete(hash string) (*fabrikpb.DeleteResponse, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultCallTimeout)
	defer cancel()
	return c.client.Delete(ctx, &fabrikpb.DeleteRequest{Hash: hash})
}

// GetStats returns the server's current cache statistics.
func (c *Client) GetStats() (*fabrikpb.GetStatsResponse, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultCallTimeout)
	defer cancel()
	return c.client.GetStats(ctx, &fabrikpb.GetStatsRequest{})
}

func loadClientTLSConfig(caCertPath string) (*tls.Config, error) {
	caCert, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, fmt.Errorf("read CA certificate: %w", err)
	}

	certPool := x509.NewCertPool()
	if !certPool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("parse CA certificate: invalid PEM")
	}

	return &tls.Config{
		RootCAs:    certPool,
		MinVersion: tls.VersionTLS13,
	}, nil
}
