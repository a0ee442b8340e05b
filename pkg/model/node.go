package model

import "github.com/golang/geo/r3"

type Node struct {
	tag          int
	numDOF       int
	coord        r3.Vector
	numConnected int
}

func NewNode(tag, numDOF int, x, y, z float64) *Node {
	return &Node{
		tag:    tag,
		numDOF: numDOF,
		coord:  r3.Vector{X: x, Y: y, Z: z},
	}
}

func (n *Node) GetTag() int {
	return n.tag
}

func (n *Node) GetNumberDOF() int {
	return n.numDOF
}

func (n *Node) GetCoordinate() r3.Vector {
	return n.coord
}

// Connect is called when a constraint starts referencing this node.
func (n *Node) Connect() {
	n.numConnected++
}

// Disconnect is called when a constraint stops referencing this node.
func (n *Node) Disconnect() {
	if n.numConnected > 0 {
		n.numConnected--
	}
}

func (n *Node) GetNumConnected() int {
	return n.numConnected
}

// Clone copies the node without its constraint connections.
func (n *Node) Clone() *Node {
	return &Node{tag: n.tag, numDOF: n.numDOF, coord: n.coord}
}
