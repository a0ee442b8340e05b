package transport

import (
	"errors"
	"fmt"
	"math"

	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg"
	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg/datastructure"
	"google.golang.org/protobuf/encoding/protowire"
)

// message kinds carried in the envelope
const (
	KIND_GRAPH      = 1
	KIND_INDEX_LIST = 2
	KIND_HELLO      = 3
)

// envelope fields
const (
	fieldKind    protowire.Number = 1
	fieldPayload protowire.Number = 2
)

// graph and vertex fields
const (
	fieldVertex protowire.Number = 1

	fieldVertexID        protowire.Number = 1
	fieldVertexReference protowire.Number = 2
	fieldVertexWeight    protowire.Number = 3
	fieldVertexColor     protowire.Number = 4
	fieldVertexAdjacency protowire.Number = 5
)

// index list fields
const (
	fieldNumEquations protowire.Number = 1
	fieldPair         protowire.Number = 2

	fieldPairTag    protowire.Number = 1
	fieldPairOffset protowire.Number = 2
)

const fieldHelloID protowire.Number = 1

var ErrMalformedMessage = errors.New("malformed message")

// IndexPair gives the first equation number of a dof group.
type IndexPair struct {
	Tag    datastructure.Index
	Offset int
}

// IndexList is the coordinator's answer to a worker: where each of its dof groups starts.
type IndexList struct {
	NumEquations int
	Pairs        []IndexPair
}

func wrap(kind uint64, payload []byte) []byte {
	b := protowire.AppendTag(nil, fieldKind, protowire.VarintType)
	b = protowire.AppendVarint(b, kind)
	b = protowire.AppendTag(b, fieldPayload, protowire.BytesType)
	return protowire.AppendBytes(b, payload)
}

func unwrap(b []byte, want uint64) ([]byte, error) {
	var kind uint64
	var payload []byte
	seenKind := false
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, protowire.ParseError(n))
		}
		b = b[n:]
		switch {
		case num == fieldKind && typ == protowire.VarintType:
			kind, n = protowire.ConsumeVarint(b)
			seenKind = true
		case num == fieldPayload && typ == protowire.BytesType:
			payload, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, protowire.ParseError(n))
		}
		b = b[n:]
	}
	if !seenKind || kind != want {
		return nil, fmt.Errorf("%w: got kind %d, want %d", ErrMalformedMessage, kind, want)
	}
	return payload, nil
}

// EncodeGraph serializes vertices (id, referenceId, weight, color, adjacency). Centroids stay local.
func EncodeGraph(g *datastructure.PartitionGraph) []byte {
	var payload []byte
	g.ForEachVertices(func(v *datastructure.PartitionVertex) {
		var vb []byte
		vb = protowire.AppendTag(vb, fieldVertexID, protowire.VarintType)
		vb = protowire.AppendVarint(vb, uint64(v.GetID()))
		vb = protowire.AppendTag(vb, fieldVertexReference, protowire.VarintType)
		vb = protowire.AppendVarint(vb, protowire.EncodeZigZag(int64(v.GetReferenceID())))
		vb = protowire.AppendTag(vb, fieldVertexWeight, protowire.Fixed64Type)
		vb = protowire.AppendFixed64(vb, math.Float64bits(v.GetWeight()))
		vb = protowire.AppendTag(vb, fieldVertexColor, protowire.VarintType)
		vb = protowire.AppendVarint(vb, protowire.EncodeZigZag(int64(v.GetColor())))

		var adj []byte
		for _, w := range v.GetAdjacency() {
			adj = protowire.AppendVarint(adj, uint64(w))
		}
		vb = protowire.AppendTag(vb, fieldVertexAdjacency, protowire.BytesType)
		vb = protowire.AppendBytes(vb, adj)

		payload = protowire.AppendTag(payload, fieldVertex, protowire.BytesType)
		payload = protowire.AppendBytes(payload, vb)
	})
	return wrap(KIND_GRAPH, payload)
}

type decodedVertex struct {
	vertex    *datastructure.PartitionVertex
	adjacency []datastructure.Index
}

func DecodeGraph(b []byte) (*datastructure.PartitionGraph, error) {
	payload, err := unwrap(b, KIND_GRAPH)
	if err != nil {
		return nil, err
	}

	decoded := make([]decodedVertex, 0)
	for len(payload) > 0 {
		num, typ, n := protowire.ConsumeTag(payload)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, protowire.ParseError(n))
		}
		payload = payload[n:]
		if num != fieldVertex || typ != protowire.BytesType {
			n = protowire.ConsumeFieldValue(num, typ, payload)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, protowire.ParseError(n))
			}
			payload = payload[n:]
			continue
		}
		vb, n := protowire.ConsumeBytes(payload)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, protowire.ParseError(n))
		}
		payload = payload[n:]
		dv, err := decodeVertex(vb)
		if err != nil {
			return nil, err
		}
		decoded = append(decoded, dv)
	}

	g := datastructure.NewPartitionGraph()
	for _, dv := range decoded {
		if err := g.AddVertex(dv.vertex); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
	}
	for _, dv := range decoded {
		for _, w := range dv.adjacency {
			if err := g.AddEdge(dv.vertex.GetID(), w); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
			}
		}
	}
	return g, nil
}

func decodeVertex(b []byte) (decodedVertex, error) {
	var id, ref, color uint64
	var weight float64
	var adjacency []datastructure.Index
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return decodedVertex{}, fmt.Errorf("%w: %v", ErrMalformedMessage, protowire.ParseError(n))
		}
		b = b[n:]
		switch {
		case num == fieldVertexID && typ == protowire.VarintType:
			id, n = protowire.ConsumeVarint(b)
		case num == fieldVertexReference && typ == protowire.VarintType:
			ref, n = protowire.ConsumeVarint(b)
		case num == fieldVertexWeight && typ == protowire.Fixed64Type:
			var bits uint64
			bits, n = protowire.ConsumeFixed64(b)
			weight = math.Float64frombits(bits)
		case num == fieldVertexColor && typ == protowire.VarintType:
			color, n = protowire.ConsumeVarint(b)
		case num == fieldVertexAdjacency && typ == protowire.BytesType:
			var packed []byte
			packed, n = protowire.ConsumeBytes(b)
			for len(packed) > 0 {
				w, m := protowire.ConsumeVarint(packed)
				if m < 0 {
					return decodedVertex{}, fmt.Errorf("%w: %v", ErrMalformedMessage, protowire.ParseError(m))
				}
				adjacency = append(adjacency, datastructure.Index(w))
				packed = packed[m:]
			}
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return decodedVertex{}, fmt.Errorf("%w: %v", ErrMalformedMessage, protowire.ParseError(n))
		}
		b = b[n:]
	}
	v := datastructure.NewPartitionVertex(datastructure.Index(id), int(protowire.DecodeZigZag(ref)), weight,
		int(protowire.DecodeZigZag(color)))
	return decodedVertex{vertex: v, adjacency: adjacency}, nil
}

func EncodeIndexList(l IndexList) []byte {
	var payload []byte
	payload = protowire.AppendTag(payload, fieldNumEquations, protowire.VarintType)
	payload = protowire.AppendVarint(payload, uint64(l.NumEquations))
	for _, p := range l.Pairs {
		var pb []byte
		pb = protowire.AppendTag(pb, fieldPairTag, protowire.VarintType)
		pb = protowire.AppendVarint(pb, uint64(p.Tag))
		pb = protowire.AppendTag(pb, fieldPairOffset, protowire.VarintType)
		pb = protowire.AppendVarint(pb, protowire.EncodeZigZag(int64(p.Offset)))
		payload = protowire.AppendTag(payload, fieldPair, protowire.BytesType)
		payload = protowire.AppendBytes(payload, pb)
	}
	return wrap(KIND_INDEX_LIST, payload)
}

func DecodeIndexList(b []byte) (IndexList, error) {
	payload, err := unwrap(b, KIND_INDEX_LIST)
	if err != nil {
		return IndexList{}, err
	}
	l := IndexList{}
	for len(payload) > 0 {
		num, typ, n := protowire.ConsumeTag(payload)
		if n < 0 {
			return IndexList{}, fmt.Errorf("%w: %v", ErrMalformedMessage, protowire.ParseError(n))
		}
		payload = payload[n:]
		switch {
		case num == fieldNumEquations && typ == protowire.VarintType:
			var v uint64
			v, n = protowire.ConsumeVarint(payload)
			l.NumEquations = int(v)
		case num == fieldPair && typ == protowire.BytesType:
			var pb []byte
			pb, n = protowire.ConsumeBytes(payload)
			if n >= 0 {
				p, err := decodePair(pb)
				if err != nil {
					return IndexList{}, err
				}
				l.Pairs = append(l.Pairs, p)
			}
		default:
			n = protowire.ConsumeFieldValue(num, typ, payload)
		}
		if n < 0 {
			return IndexList{}, fmt.Errorf("%w: %v", ErrMalformedMessage, protowire.ParseError(n))
		}
		payload = payload[n:]
	}
	return l, nil
}

func decodePair(b []byte) (IndexPair, error) {
	p := IndexPair{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return IndexPair{}, fmt.Errorf("%w: %v", ErrMalformedMessage, protowire.ParseError(n))
		}
		b = b[n:]
		var v uint64
		switch {
		case num == fieldPairTag && typ == protowire.VarintType:
			v, n = protowire.ConsumeVarint(b)
			p.Tag = datastructure.Index(v)
		case num == fieldPairOffset && typ == protowire.VarintType:
			v, n = protowire.ConsumeVarint(b)
			p.Offset = int(protowire.DecodeZigZag(v))
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return IndexPair{}, fmt.Errorf("%w: %v", ErrMalformedMessage, protowire.ParseError(n))
		}
		b = b[n:]
	}
	return p, nil
}

func EncodeHello(id int) []byte {
	payload := protowire.AppendTag(nil, fieldHelloID, protowire.VarintType)
	payload = protowire.AppendVarint(payload, uint64(id))
	return wrap(KIND_HELLO, payload)
}

func DecodeHello(b []byte) (int, error) {
	payload, err := unwrap(b, KIND_HELLO)
	if err != nil {
		return pkg.INVALID_PARTITION_ID, err
	}
	num, typ, n := protowire.ConsumeTag(payload)
	if n < 0 || num != fieldHelloID || typ != protowire.VarintType {
		return pkg.INVALID_PARTITION_ID, fmt.Errorf("%w: hello without id", ErrMalformedMessage)
	}
	id, m := protowire.ConsumeVarint(payload[n:])
	if m < 0 {
		return pkg.INVALID_PARTITION_ID, fmt.Errorf("%w: %v", ErrMalformedMessage, protowire.ParseError(m))
	}
	return int(id), nil
}
