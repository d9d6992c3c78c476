package counter

import (
	"image/color"

	"github.com/Faultbox/paintcore/internal/paint"
	"github.com/Faultbox/paintcore/internal/texture"
)

// DefaultThreshold is how far (as a fraction of 255) the summed RGBA
// distance may be for a texel to match a swatch.
const DefaultThreshold = 0.1

// Swatch is a named palette entry.
type Swatch struct {
	Name  string
	Color texture.Color
}

// Contribution is how much of the texture matched one swatch.
type Contribution struct {
	Swatch Swatch
	Count  int64
	Ratio  float32
}

// ColorCounter counts texels by their closest palette swatch.
type ColorCounter struct {
	*Monitor

	palette   []Swatch
	threshold float32

	contributions []Contribution
	total         int64
}

// NewColorCounter counts target against palette.
func NewColorCounter(m *paint.Manager, target *paint.PaintableTexture, opts Options, palette ...Swatch) *ColorCounter {
	c := &ColorCounter{
		Monitor:   NewMonitor(m, target, opts),
		palette:   palette,
		threshold: DefaultThreshold,
	}
	c.handle = c.count
	return c
}

// Threshold returns the matching tolerance.
func (c *ColorCounter) Threshold() float32 { return c.threshold }

// SetThreshold changes the matching tolerance and schedules a recount.
func (c *ColorCounter) SetThreshold(v float32) {
	if v != c.threshold {
		c.threshold = v
		c.MarkDirty()
	}
}

// Palette returns the swatches being counted.
func (c *ColorCounter) Palette() []Swatch { return c.palette }

// SetPalette replaces the swatches and schedules a recount.
func (c *ColorCounter) SetPalette(palette ...Swatch) {
	c.palette = palette
	c.MarkDirty()
}

// Total is the number of counted texels at full resolution.
func (c *ColorCounter) Total() int64 { return c.total }

// Contributions returns the swatches with a non-zero count.
func (c *ColorCounter) Contributions() []Contribution { return c.contributions }

// Count returns the texels matching the named swatch.
func (c *ColorCounter) Count(name string) int64 {
	for _, ct := range c.contributions {
		if ct.Swatch.Name == name {
			return ct.Count
		}
	}
	return 0
}

// Ratio returns Count(name) as a fraction of Total.
func (c *ColorCounter) Ratio(name string) float32 {
	if c.total <= 0 {
		return 0
	}
	return float32(c.Count(name)) / float32(c.total)
}

func (c *ColorCounter) count(pixels []color.NRGBA, mask []uint8, boost float32) {
	if mask != nil && len(mask) != len(pixels) {
		return
	}
	swatches := make([]color.NRGBA, len(c.palette))
	for i, s := range c.palette {
		swatches[i] = s.Color.NRGBA()
	}
	counts := make([]int64, len(c.palette))
	limit := int(c.threshold * 255)

	var total int64
	for i, p := range pixels {
		if !counted(mask, i) {
			continue
		}
		total++
		best, bestDist := -1, limit
		for si, s := range swatches {
			if d := distance(s, p); d <= bestDist {
				best, bestDist = si, d
			}
		}
		if best >= 0 {
			counts[best]++
		}
	}

	c.total = scale(total, boost)
	c.contributions = c.contributions[:0]
	for i, n := range counts {
		n = scale(n, boost)
		if n <= 0 {
			continue
		}
		ct := Contribution{Swatch: c.palette[i], Count: n}
		if c.total > 0 {
			ct.Ratio = float32(n) / float32(c.total)
		}
		c.contributions = append(c.contributions, ct)
	}
}

func distance(a, b color.NRGBA) int {
	return absDiff(a.R, b.R) + absDiff(a.G, b.G) + absDiff(a.B, b.B) + absDiff(a.A, b.A)
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

// TotalOf sums the totals of several counters.
func TotalOf(counters ...*ColorCounter) int64 {
	var n int64
	for _, c := range counters {
		if c != nil {
			n += c.total
		}
	}
	return n
}

// CountOf sums the named swatch over several counters.
func CountOf(name string, counters ...*ColorCounter) int64 {
	var n int64
	for _, c := range counters {
		if c != nil {
			n += c.Count(name)
		}
	}
	return n
}

// RatioOf is CountOf divided by TotalOf.
func RatioOf(name string, counters ...*ColorCounter) float32 {
	total := TotalOf(counters...)
	if total == 0 {
		return 0
	}
	return float32(CountOf(name, counters...)) / float32(total)
}
