package render

import (
	"context"
	"sync"
)

// MockRenderer is a scripted Renderer for tests.
type MockRenderer struct {
	mu sync.Mutex

	// Pages is the page count reported for every PDF.
	Pages int

	// PNG is returned for every rendered page.
	PNG []byte

	// CountErr fails PageCount; RenderErr fails RenderPage.
	CountErr  error
	RenderErr error

	rendered []int
}

var _ Renderer = (*MockRenderer)(nil)

// PageCount returns the scripted page count.
func (m *MockRenderer) PageCount(_ context.Context, _ []byte) (int, error) {
	if m.CountErr != nil {
		return 0, m.CountErr
	}
	return m.Pages, nil
}

// RenderPage returns the scripted PNG and records the page index.
func (m *MockRenderer) RenderPage(_ context.Context, _ []byte, pageIndex, _ int) ([]byte, error) {
	if m.RenderErr != nil {
		return nil, m.RenderErr
	}
	if pageIndex < 0 || pageIndex >= m.Pages {
		return nil, ErrPageOutOfRange
	}
	m.mu.Lock()
	m.rendered = append(m.rendered, pageIndex)
	m.mu.Unlock()
	png := m.PNG
	if png == nil {
		png = []byte("png")
	}
	return png, nil
}

// Rendered returns a copy of the page indices rendered so far.
func (m *MockRenderer) Rendered() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int, len(m.rendered))
	copy(out, m.rendered)
	return out
}
