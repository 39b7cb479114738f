package ecs

// store is the type erased view the world keeps of every component set.
type store interface {
	has(id uint32) bool
	remove(id uint32) bool
	len() int
}

// sparseSet keeps components densely packed and indexed by entity id.
type sparseSet[T any] struct {
	dense  []Entity
	values []*T
	sparse []int
}

func (s *sparseSet[T]) index(id uint32) int {
	if id == 0 || int(id) > len(s.sparse) {
		return -1
	}
	idx := s.sparse[id-1]
	if idx < 0 || idx >= len(s.dense) || s.dense[idx].Index() != id {
		return -1
	}
	return idx
}

func (s *sparseSet[T]) has(id uint32) bool {
	return s.index(id) >= 0
}

func (s *sparseSet[T]) get(id uint32) (*T, bool) {
	idx := s.index(id)
	if idx < 0 {
		return nil, false
	}
	return s.values[idx], true
}

// set inserts or replaces the component of e.
func (s *sparseSet[T]) set(e Entity, v *T) {
	id := e.Index()
	for int(id) > len(s.sparse) {
		s.sparse = append(s.sparse, -1)
	}
	if idx := s.index(id); idx >= 0 {
		s.dense[idx] = e
		s.values[idx] = v
		return
	}
	s.dense = append(s.dense, e)
	s.values = append(s.values, v)
	s.sparse[id-1] = len(s.dense) - 1
}

func (s *sparseSet[T]) remove(id uint32) bool {
	idx := s.index(id)
	if idx < 0 {
		return false
	}
	last := len(s.dense) - 1
	moved := s.dense[last]
	s.dense[idx] = moved
	s.values[idx] = s.values[last]
	s.sparse[moved.Index()-1] = idx

	s.dense[last] = 0
	s.values[last] = nil
	s.dense = s.dense[:last]
	s.values = s.values[:last]
	s.sparse[id-1] = -1
	return true
}

func (s *sparseSet[T]) len() int {
	return len(s.dense)
}
