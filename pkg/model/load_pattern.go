package model

type NodalLoad struct {
	tag     int
	nodeTag int
	values  []float64
}

func NewNodalLoad(tag, nodeTag int, values []float64) *NodalLoad {
	return &NodalLoad{tag: tag, nodeTag: nodeTag, values: append([]float64(nil), values...)}
}

func (l *NodalLoad) GetTag() int {
	return l.tag
}

func (l *NodalLoad) GetNodeTag() int {
	return l.nodeTag
}

func (l *NodalLoad) GetValues() []float64 {
	return l.values
}

func (l *NodalLoad) Clone() *NodalLoad {
	return NewNodalLoad(l.tag, l.nodeTag, l.values)
}

type LoadPattern struct {
	tag        int
	nodalLoads *registry[*NodalLoad]
}

func NewLoadPattern(tag int) *LoadPattern {
	return &LoadPattern{tag: tag, nodalLoads: newRegistry[*NodalLoad]()}
}

func (p *LoadPattern) GetTag() int {
	return p.tag
}

func (p *LoadPattern) AddNodalLoad(l *NodalLoad) bool {
	return p.nodalLoads.add(l.tag, l)
}

func (p *LoadPattern) RemoveNodalLoad(tag int) (*NodalLoad, bool) {
	return p.nodalLoads.remove(tag)
}

func (p *LoadPattern) GetNodalLoad(tag int) (*NodalLoad, bool) {
	return p.nodalLoads.get(tag)
}

func (p *LoadPattern) NumberOfNodalLoads() int {
	return p.nodalLoads.len()
}

func (p *LoadPattern) ForEachNodalLoad(handle func(l *NodalLoad)) {
	p.nodalLoads.forEach(handle)
}

// CloneEmpty returns a pattern with the same tag and no loads.
func (p *LoadPattern) CloneEmpty() *LoadPattern {
	return NewLoadPattern(p.tag)
}
