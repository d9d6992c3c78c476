package counter

import (
	"image/color"

	"github.com/Faultbox/paintcore/internal/paint"
)

// ChannelCounter counts, per RGBA channel, the texels at or above half
// intensity.
type ChannelCounter struct {
	*Monitor

	counts [4]int64
	total  int64
}

// NewChannelCounter counts the channels of target.
func NewChannelCounter(m *paint.Manager, target *paint.PaintableTexture, opts Options) *ChannelCounter {
	c := &ChannelCounter{Monitor: NewMonitor(m, target, opts)}
	c.handle = c.count
	return c
}

// Total is the number of counted texels at full resolution.
func (c *ChannelCounter) Total() int64 { return c.total }

// Count returns the texels whose channel ch (0-3 for RGBA) is set.
func (c *ChannelCounter) Count(ch int) int64 {
	if ch < 0 || ch > 3 {
		return 0
	}
	return c.counts[ch]
}

// Ratio returns Count(ch) as a fraction of Total.
func (c *ChannelCounter) Ratio(ch int) float32 {
	if c.total <= 0 {
		return 0
	}
	return float32(c.Count(ch)) / float32(c.total)
}

func (c *ChannelCounter) count(pixels []color.NRGBA, mask []uint8, boost float32) {
	if mask != nil && len(mask) != len(pixels) {
		return
	}
	var counts [4]int64
	var total int64
	for i, p := range pixels {
		if !counted(mask, i) {
			continue
		}
		total++
		for ch := 0; ch < 4; ch++ {
			if channel(p, ch) >= 128 {
				counts[ch]++
			}
		}
	}
	for ch := range counts {
		c.counts[ch] = scale(counts[ch], boost)
	}
	c.total = scale(total, boost)
}
