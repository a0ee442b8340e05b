package model

import (
	"fmt"
	"sort"

	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg"
)

// Domain is the partitioned model: the main collection holding the assembled model (and, once
// partitioned, the shared nodes) plus one Subdomain per partition.
type Domain struct {
	main       *Subdomain
	partitions map[int]*Subdomain
}

func NewDomain() *Domain {
	return &Domain{
		main:       NewSubdomain(pkg.NO_MAIN_PARTITION),
		partitions: make(map[int]*Subdomain),
	}
}

func (d *Domain) GetMain() *Subdomain {
	return d.main
}

func (d *Domain) AddPartition(id int) (*Subdomain, error) {
	if id < pkg.FIRST_PARTITION_ID {
		return nil, fmt.Errorf("partition id %d must be >= %d", id, pkg.FIRST_PARTITION_ID)
	}
	if _, ok := d.partitions[id]; ok {
		return nil, fmt.Errorf("partition %d already exists", id)
	}
	s := NewSubdomain(id)
	d.partitions[id] = s
	return s, nil
}

func (d *Domain) GetPartition(id int) (*Subdomain, error) {
	s, ok := d.partitions[id]
	if !ok {
		return nil, fmt.Errorf("partition %d: %w", id, pkg.ErrUnknownPartition)
	}
	return s, nil
}

func (d *Domain) GetPartitionIDs() []int {
	ids := make([]int, 0, len(d.partitions))
	for id := range d.partitions {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (d *Domain) NumberOfPartitions() int {
	return len(d.partitions)
}
