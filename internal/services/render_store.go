package services

import (
	"sync"

	"stock-forecast-app/internal/models"
)

// RenderStore keeps the view models of the most recent render passes so chart
// frames can be served after the page. Older passes are evicted; their charts are
// gone.
type RenderStore struct {
	mu    sync.RWMutex
	limit int
	order []string
	byID  map[string]*models.ViewModel
}

func NewRenderStore(limit int) *RenderStore {
	if limit < 1 {
		limit = 1
	}
	return &RenderStore{
		limit: limit,
		byID:  make(map[string]*models.ViewModel, limit),
	}
}

// Put stores vm, evicting the oldest pass when full.
func (s *RenderStore) Put(vm *models.ViewModel) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[vm.RenderID]; exists {
		s.byID[vm.RenderID] = vm
		return
	}
	for len(s.order) >= s.limit {
		delete(s.byID, s.order[0])
		s.order = s.order[1:]
	}
	s.order = append(s.order, vm.RenderID)
	s.byID[vm.RenderID] = vm
}

func (s *RenderStore) Get(id string) (*models.ViewModel, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vm, ok := s.byID[id]
	return vm, ok
}

func (s *RenderStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}
