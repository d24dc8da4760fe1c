// ABOUTME: Adapts device buffer sizes to fixed engine blocks
// ABOUTME: Renders whole blocks and hands them out in whatever sizes the device asks for
package output

// blockFeeder serves arbitrary sample counts from fixed-size rendered blocks.
// It is owned by a single device callback and does no locking.
type blockFeeder struct {
	render RenderFunc
	block  []float32
	offset int
}

func newBlockFeeder(cfg StreamConfig, render RenderFunc) *blockFeeder {
	block := make([]float32, cfg.BlockSize*cfg.Channels)
	return &blockFeeder{
		render: render,
		block:  block,
		offset: len(block), // empty until the first fill
	}
}

// Fill writes exactly len(dst) samples
func (f *blockFeeder) Fill(dst []float32) {
	for len(dst) > 0 {
		if f.offset >= len(f.block) {
			f.render(f.block)
			f.offset = 0
		}
		n := copy(dst, f.block[f.offset:])
		f.offset += n
		dst = dst[n:]
	}
}
