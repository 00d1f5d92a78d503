package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-forecast-app/internal/models"
)

func TestRenderStore_EvictsOldest(t *testing.T) {
	s := NewRenderStore(2)
	a := &models.ViewModel{RenderID: "a"}
	b := &models.ViewModel{RenderID: "b"}
	c := &models.ViewModel{RenderID: "c"}

	s.Put(a)
	s.Put(b)
	s.Put(c)

	assert.Equal(t, 2, s.Len())
	_, found := s.Get("a")
	assert.False(t, found)

	got, found := s.Get("b")
	require.True(t, found)
	assert.Same(t, b, got)

	got, found = s.Get("c")
	require.True(t, found)
	assert.Same(t, c, got)
}

func TestRenderStore_PutSameIDReplaces(t *testing.T) {
	s := NewRenderStore(2)
	s.Put(&models.ViewModel{RenderID: "a"})
	replacement := &models.ViewModel{RenderID: "a", HorizonDays: 730}
	s.Put(replacement)

	assert.Equal(t, 1, s.Len())
	got, _ := s.Get("a")
	assert.Same(t, replacement, got)
}

func TestRenderStore_Empty(t *testing.T) {
	s := NewRenderStore(0)
	_, found := s.Get("a")
	assert.False(t, found)
	assert.Zero(t, s.Len())

	s.Put(&models.ViewModel{RenderID: "a"})
	s.Put(&models.ViewModel{RenderID: "b"})
	assert.Equal(t, 1, s.Len())
}
