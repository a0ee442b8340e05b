package transport

import (
	"context"
	"errors"

	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg/datastructure"
)

var ErrClosed = errors.New("channel closed")

// Channel is an ordered, reliable link between the coordinator and one worker. Both ends see the
// worker's id.
type Channel interface {
	ID() int
	SendGraph(ctx context.Context, g *datastructure.PartitionGraph) error
	RecvGraph(ctx context.Context) (*datastructure.PartitionGraph, error)
	SendIndexList(ctx context.Context, l IndexList) error
	RecvIndexList(ctx context.Context) (IndexList, error)
	Close() error
}

// Hub is the coordinator side: Accept completes the handshake of n workers and returns their
// channels in ascending id order.
type Hub interface {
	Accept(ctx context.Context, n int) ([]Channel, error)
	Close() error
}

// byteLink moves encoded messages; channels built on it only add the codec.
type byteLink interface {
	send(ctx context.Context, data []byte) error
	recv(ctx context.Context) ([]byte, error)
	close() error
}

type codecChannel struct {
	id   int
	link byteLink
}

func (c *codecChannel) ID() int {
	return c.id
}

func (c *codecChannel) SendGraph(ctx context.Context, g *datastructure.PartitionGraph) error {
	return c.link.send(ctx, EncodeGraph(g))
}

func (c *codecChannel) RecvGraph(ctx context.Context) (*datastructure.PartitionGraph, error) {
	data, err := c.link.recv(ctx)
	if err != nil {
		return nil, err
	}
	return DecodeGraph(data)
}

func (c *codecChannel) SendIndexList(ctx context.Context, l IndexList) error {
	return c.link.send(ctx, EncodeIndexList(l))
}

func (c *codecChannel) RecvIndexList(ctx context.Context) (IndexList, error) {
	data, err := c.link.recv(ctx)
	if err != nil {
		return IndexList{}, err
	}
	return DecodeIndexList(data)
}

func (c *codecChannel) Close() error {
	return c.link.close()
}
