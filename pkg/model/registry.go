package model

// registry keeps tagged components in registration order.
type registry[T any] struct {
	items map[int]T
	order []int
}

func newRegistry[T any]() *registry[T] {
	return &registry[T]{items: make(map[int]T)}
}

func (r *registry[T]) add(tag int, item T) bool {
	if _, ok := r.items[tag]; ok {
		return false
	}
	r.items[tag] = item
	r.order = append(r.order, tag)
	return true
}

func (r *registry[T]) remove(tag int) (T, bool) {
	item, ok := r.items[tag]
	if !ok {
		var zero T
		return zero, false
	}
	delete(r.items, tag)
	for i, t := range r.order {
		if t == tag {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return item, true
}

func (r *registry[T]) get(tag int) (T, bool) {
	item, ok := r.items[tag]
	return item, ok
}

func (r *registry[T]) len() int {
	return len(r.items)
}

func (r *registry[T]) tags() []int {
	tags := make([]int, len(r.order))
	copy(tags, r.order)
	return tags
}

func (r *registry[T]) forEach(handle func(item T)) {
	for _, tag := range r.tags() {
		handle(r.items[tag])
	}
}
