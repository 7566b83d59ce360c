package domain

import "strings"

// Direction records which way the carousel last moved. It only selects the
// transition used to show the new slide.
type Direction string

const (
	DirectionNone Direction = ""
	DirectionNext Direction = "next"
	DirectionPrev Direction = "prev"
)

// ParseDirection maps a query value onto a direction.
func ParseDirection(s string) Direction {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case DirectionNext:
		return DirectionNext
	case DirectionPrev:
		return DirectionPrev
	default:
		return DirectionNone
	}
}

// WrapIndex maps any integer onto [0, n). It returns 0 when n is not positive.
func WrapIndex(i, n int) int {
	if n <= 0 {
		return 0
	}
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

// Carousel cycles an index through a fixed number of slides. It is not safe
// for concurrent use.
type Carousel struct {
	size      int
	index     int
	direction Direction
	paused    bool
}

// NewCarousel creates a carousel over size slides positioned at start.
func NewCarousel(size, start int) *Carousel {
	return &Carousel{size: size, index: WrapIndex(start, size)}
}

func (c *Carousel) Size() int            { return c.size }
func (c *Carousel) Index() int           { return c.index }
func (c *Carousel) Direction() Direction { return c.direction }
func (c *Carousel) Paused() bool         { return c.paused }

// Next advances one slide, wrapping from the last to the first.
func (c *Carousel) Next() int {
	c.index = WrapIndex(c.index+1, c.size)
	c.direction = DirectionNext
	return c.index
}

// Prev moves back one slide, wrapping from the first to the last.
func (c *Carousel) Prev() int {
	c.index = WrapIndex(c.index-1, c.size)
	c.direction = DirectionPrev
	return c.index
}

// GoTo jumps to slide i. Moving to a higher index counts as next, anything
// else, including the current slide, as prev.
func (c *Carousel) GoTo(i int) int {
	i = WrapIndex(i, c.size)
	if i > c.index {
		c.direction = DirectionNext
	} else {
		c.direction = DirectionPrev
	}
	c.index = i
	return c.index
}

// Pause stops auto-advance. Manual navigation keeps working.
func (c *Carousel) Pause() { c.paused = true }

// Resume re-enables auto-advance.
func (c *Carousel) Resume() { c.paused = false }

// Tick is the auto-advance step. It reports whether the carousel moved.
func (c *Carousel) Tick() bool {
	if c.paused || c.size <= 1 {
		return false
	}
	c.Next()
	return true
}

// Neighbours returns the indices reached by Prev and Next from i.
func Neighbours(i, n int) (prev, next int) {
	return WrapIndex(i-1, n), WrapIndex(i+1, n)
}
