package stream

// Bounded wraps a Reader and refuses to read past limit bytes, used to
// frame request bodies against a known Content-Length. AtEOF becomes true
// once limit bytes have been delivered, independent of the underlying
// reader's own EOF state.
type Bounded struct {
	src       Reader
	limit     int64
	delivered int64
}

func NewBounded(src Reader, limit int64) *Bounded {
	return &Bounded{src: src, limit: limit}
}

// Remaining reports how many bytes may still be read before the bound is
// reached.
func (b *Bounded) Remaining() int64 {
	return b.limit - b.delivered
}

func (b *Bounded) AtEOF() bool {
	return b.delivered >= b.limit
}

func (b *Bounded) Read(n int) ([]byte, error) {
	if b.AtEOF() {
		return nil, nil
	}

	if rem := b.Remaining(); int64(n) > rem {
		n = int(rem)
	}

	out, err := b.src.Read(n)
	b.delivered += int64(len(out))

	return out, err
}

func (b *Bounded) ReadOnce(buf []byte) (int, error) {
	if b.AtEOF() {
		return 0, nil
	}

	if rem := b.Remaining(); int64(len(buf)) > rem {
		buf = buf[:rem]
	}

	n, err := b.src.ReadOnce(buf)
	b.delivered += int64(n)

	return n, err
}

func (b *Bounded) ReadUntil(maxN int, sep []byte) ([]byte, error) {
	if rem := b.Remaining(); int64(maxN) > rem {
		maxN = int(rem)
	}

	out, err := b.src.ReadUntil(maxN, sep)
	b.delivered += int64(len(out))

	return out, err
}

func (b *Bounded) Consume() error {
	for !b.AtEOF() {
		if _, err := b.Read(4096); err != nil {
			return err
		}
	}

	return nil
}
