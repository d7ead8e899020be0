package kcore

// CIB is a circular integer buffer: two monotonic counters plus a mask,
// producing ring indices without storing the ring's contents itself (the
// mailbox and per-thread message queue layer the actual storage array on
// top). Grounded on core/include/cib.h, the modern power-of-two-only
// variant over the legacy cib.c "complement" scheme.
type CIB struct {
	readCount  uint32
	writeCount uint32
	mask       uint32
}

// NewCIB builds a CIB for a buffer of the given size, which must be zero or
// a power of two. A zero size degrades the CIB to "always full / always
// empty": Put never succeeds (pure rendezvous), and neither does Get, since
// no slots exist.
func NewCIB(size uint32) CIB {
	Assert(size&(size-1) == 0, "CIB: size must be zero or a power of two")
	return CIB{mask: size - 1}
}

// Avail reports how many times Get can be called before the buffer is
// empty.
func (c *CIB) Avail() uint32 {
	return c.writeCount - c.readCount
}

// Full reports whether Put would currently fail.
func (c *CIB) Full() bool {
	// Signed comparison reproduces the zero-capacity "always full" trick:
	// when size == 0, mask == ^uint32(0), i.e. -1 as a signed value, so any
	// non-negative avail compares greater and Full is always true.
	return int32(c.Avail()) > int32(c.mask)
}

// Put returns the index to write the next item at, or (0, false) if full.
func (c *CIB) Put() (uint32, bool) {
	if c.Full() {
		return 0, false
	}
	idx := c.writeCount & c.mask
	c.writeCount++
	return idx, true
}

// Get returns the index to read the next item from, or (0, false) if empty.
func (c *CIB) Get() (uint32, bool) {
	if c.Avail() == 0 {
		return 0, false
	}
	idx := c.readCount & c.mask
	c.readCount++
	return idx, true
}

// Peek is the non-consuming variant of Get.
func (c *CIB) Peek() (uint32, bool) {
	if c.Avail() == 0 {
		return 0, false
	}
	return c.readCount & c.mask, true
}

// Cap reports the buffer's capacity (0 if degenerate/rendezvous-only).
func (c *CIB) Cap() uint32 {
	if c.mask == ^uint32(0) {
		return 0
	}
	return c.mask + 1
}
