package model

import (
	"fmt"
	"sort"
)

// Subdomain is one collection of the model: either the main collection or a partition.
// Owned nodes belong to it, external nodes are read-only mirrors of nodes owned elsewhere.
type Subdomain struct {
	id            int
	nodes         *registry[*Node]
	externalNodes *registry[*Node]
	elements      *registry[*Element]
	spConstraints *registry[*SPConstraint]
	mpConstraints *registry[*MPConstraint]
	loadPatterns  *registry[*LoadPattern]

	changeStamp int
	listeners   []func(s *Subdomain)
}

func NewSubdomain(id int) *Subdomain {
	return &Subdomain{
		id:            id,
		nodes:         newRegistry[*Node](),
		externalNodes: newRegistry[*Node](),
		elements:      newRegistry[*Element](),
		spConstraints: newRegistry[*SPConstraint](),
		mpConstraints: newRegistry[*MPConstraint](),
		loadPatterns:  newRegistry[*LoadPattern](),
	}
}

func (s *Subdomain) GetID() int {
	return s.id
}

func (s *Subdomain) AddNode(n *Node) error {
	if _, ok := s.externalNodes.get(n.tag); ok {
		return fmt.Errorf("subdomain %d: node %d already present as external node", s.id, n.tag)
	}
	if !s.nodes.add(n.tag, n) {
		return fmt.Errorf("subdomain %d: node %d already exists", s.id, n.tag)
	}
	s.connectConstraints(n)
	return nil
}

func (s *Subdomain) RemoveNode(tag int) (*Node, bool) {
	return s.nodes.remove(tag)
}

func (s *Subdomain) AddExternalNode(n *Node) error {
	if _, ok := s.nodes.get(n.tag); ok {
		return fmt.Errorf("subdomain %d: node %d already present as owned node", s.id, n.tag)
	}
	if !s.externalNodes.add(n.tag, n) {
		return fmt.Errorf("subdomain %d: external node %d already exists", s.id, n.tag)
	}
	s.connectConstraints(n)
	return nil
}

func (s *Subdomain) RemoveExternalNode(tag int) (*Node, bool) {
	return s.externalNodes.remove(tag)
}

func (s *Subdomain) HasOwnedNode(tag int) bool {
	_, ok := s.nodes.get(tag)
	return ok
}

func (s *Subdomain) HasExternalNode(tag int) bool {
	_, ok := s.externalNodes.get(tag)
	return ok
}

// GetNode looks up owned nodes first, then external ones.
func (s *Subdomain) GetNode(tag int) (*Node, bool) {
	if n, ok := s.nodes.get(tag); ok {
		return n, true
	}
	return s.externalNodes.get(tag)
}

func (s *Subdomain) NumberOfNodes() int {
	return s.nodes.len()
}

func (s *Subdomain) NumberOfExternalNodes() int {
	return s.externalNodes.len()
}

func (s *Subdomain) ForEachNode(handle func(n *Node)) {
	s.nodes.forEach(handle)
}

func (s *Subdomain) ForEachExternalNode(handle func(n *Node)) {
	s.externalNodes.forEach(handle)
}

// GetAllNodeTags returns owned and external node tags in ascending order.
func (s *Subdomain) GetAllNodeTags() []int {
	tags := append(s.nodes.tags(), s.externalNodes.tags()...)
	sort.Ints(tags)
	return tags
}

func (s *Subdomain) AddElement(e *Element) error {
	if !s.elements.add(e.tag, e) {
		return fmt.Errorf("subdomain %d: element %d already exists", s.id, e.tag)
	}
	return nil
}

func (s *Subdomain) RemoveElement(tag int) (*Element, bool) {
	return s.elements.remove(tag)
}

func (s *Subdomain) GetElement(tag int) (*Element, bool) {
	return s.elements.get(tag)
}

func (s *Subdomain) NumberOfElements() int {
	return s.elements.len()
}

func (s *Subdomain) ForEachElement(handle func(e *Element)) {
	s.elements.forEach(handle)
}

func (s *Subdomain) AddSPConstraint(sp *SPConstraint) error {
	if !s.spConstraints.add(sp.tag, sp) {
		return fmt.Errorf("subdomain %d: sp constraint %d already exists", s.id, sp.tag)
	}
	s.connect(sp.nodeTag)
	return nil
}

func (s *Subdomain) RemoveSPConstraint(tag int) (*SPConstraint, bool) {
	sp, ok := s.spConstraints.remove(tag)
	if ok {
		s.disconnect(sp.nodeTag)
	}
	return sp, ok
}

func (s *Subdomain) GetSPConstraint(tag int) (*SPConstraint, bool) {
	return s.spConstraints.get(tag)
}

func (s *Subdomain) NumberOfSPConstraints() int {
	return s.spConstraints.len()
}

// ForEachSPConstraint visits constraints in registration order.
func (s *Subdomain) ForEachSPConstraint(handle func(sp *SPConstraint)) {
	s.spConstraints.forEach(handle)
}

func (s *Subdomain) AddMPConstraint(mp *MPConstraint) error {
	if !s.mpConstraints.add(mp.tag, mp) {
		return fmt.Errorf("subdomain %d: mp constraint %d already exists", s.id, mp.tag)
	}
	for _, tag := range mp.GetNodeTags() {
		s.connect(tag)
	}
	return nil
}

func (s *Subdomain) RemoveMPConstraint(tag int) (*MPConstraint, bool) {
	mp, ok := s.mpConstraints.remove(tag)
	if ok {
		for _, nodeTag := range mp.GetNodeTags() {
			s.disconnect(nodeTag)
		}
	}
	return mp, ok
}

func (s *Subdomain) GetMPConstraint(tag int) (*MPConstraint, bool) {
	return s.mpConstraints.get(tag)
}

func (s *Subdomain) NumberOfMPConstraints() int {
	return s.mpConstraints.len()
}

func (s *Subdomain) ForEachMPConstraint(handle func(mp *MPConstraint)) {
	s.mpConstraints.forEach(handle)
}

func (s *Subdomain) AddLoadPattern(p *LoadPattern) error {
	if !s.loadPatterns.add(p.tag, p) {
		return fmt.Errorf("subdomain %d: load pattern %d already exists", s.id, p.tag)
	}
	return nil
}

func (s *Subdomain) GetLoadPattern(tag int) (*LoadPattern, bool) {
	return s.loadPatterns.get(tag)
}

func (s *Subdomain) ForEachLoadPattern(handle func(p *LoadPattern)) {
	s.loadPatterns.forEach(handle)
}

// IsEmpty reports whether the subdomain holds no nodes, elements, constraints or nodal loads.
// Load patterns without loads do not count.
func (s *Subdomain) IsEmpty() bool {
	if s.nodes.len() != 0 || s.externalNodes.len() != 0 || s.elements.len() != 0 ||
		s.spConstraints.len() != 0 || s.mpConstraints.len() != 0 {
		return false
	}
	empty := true
	s.loadPatterns.forEach(func(p *LoadPattern) {
		if p.NumberOfNodalLoads() > 0 {
			empty = false
		}
	})
	return empty
}

// OnChange registers a listener invoked by DomainChange.
func (s *Subdomain) OnChange(listener func(s *Subdomain)) {
	s.listeners = append(s.listeners, listener)
}

// DomainChange marks the equation structure as changed and notifies listeners.
func (s *Subdomain) DomainChange() {
	s.changeStamp++
	for _, l := range s.listeners {
		l(s)
	}
}

func (s *Subdomain) GetChangeStamp() int {
	return s.changeStamp
}

// connectConstraints recounts the constraints of this subdomain referencing a node that just arrived.
func (s *Subdomain) connectConstraints(n *Node) {
	n.numConnected = 0
	s.spConstraints.forEach(func(sp *SPConstraint) {
		if sp.nodeTag == n.tag {
			n.Connect()
		}
	})
	s.mpConstraints.forEach(func(mp *MPConstraint) {
		for _, tag := range mp.GetNodeTags() {
			if tag == n.tag {
				n.Connect()
			}
		}
	})
}

func (s *Subdomain) connect(nodeTag int) {
	if n, ok := s.GetNode(nodeTag); ok {
		n.Connect()
	}
}

func (s *Subdomain) disconnect(nodeTag int) {
	if n, ok := s.GetNode(nodeTag); ok {
		n.Disconnect()
	}
}
