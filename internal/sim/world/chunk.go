package world

import "sort"

// Chunk is a fixed-size grid of cells, the unit of generation and storage.
// Cells live in per-column slices kept sorted by Y at all times, so point
// queries are a binary search and renderers get ordered iteration for free.
type Chunk struct {
	// Chunk-grid coordinate: world coordinate = chunk coordinate * ChunkSize.
	CX, CY int

	cols [ChunkSize][]Cell

	// modified is set by SetCell mutations (never by generation). Snapshots
	// persist only modified chunks; pristine ones regenerate from seed.
	modified bool

	// rev increments on every mutation so observers can invalidate cached
	// chunk payloads. Generation leaves it at 1.
	rev uint64
}

func NewChunk(cx, cy int) *Chunk {
	c := &Chunk{CX: cx, CY: cy, rev: 1}
	for i := range c.cols {
		c.cols[i] = make([]Cell, 0, ChunkSize)
	}
	return c
}

func (c *Chunk) Modified() bool { return c.modified }
func (c *Chunk) Rev() uint64    { return c.rev }

func inBounds(x, y int) bool {
	return x >= 0 && x < ChunkSize && y >= 0 && y < ChunkSize
}

// AddCell appends cell to its column and restores the column order. This is
// the population path used by generation; it tolerates out-of-order appends
// because the column is re-sorted on every add.
//
// Panics on an out-of-bounds local coordinate: that is a generation bug, not
// a runtime condition.
func (c *Chunk) AddCell(cell Cell) {
	if !inBounds(cell.X, cell.Y) {
		panic(ErrOutOfBounds)
	}
	col := append(c.cols[cell.X], cell)
	sort.Slice(col, func(i, j int) bool { return col[i].Y < col[j].Y })
	c.cols[cell.X] = col
}

// GetCell binary searches column x for the cell at row y. When found, idx is
// the cell's position in the column; when not found, idx is the insertion
// index that would keep the column sorted (SetCell uses it to decide between
// overwrite and insert).
func (c *Chunk) GetCell(x, y int) (cell Cell, idx int, found bool) {
	if !inBounds(x, y) {
		panic(ErrOutOfBounds)
	}
	col := c.cols[x]
	idx = sort.Search(len(col), func(i int) bool { return col[i].Y >= y })
	if idx < len(col) && col[idx].Y == y {
		return col[idx], idx, true
	}
	return Cell{}, idx, false
}

// SetCell overwrites the cell at (cell.X, cell.Y) in place when it exists;
// the key is unchanged, so no resort is needed. Otherwise it inserts at the
// position GetCell reported, keeping the column sorted.
func (c *Chunk) SetCell(cell Cell) {
	_, idx, found := c.GetCell(cell.X, cell.Y)
	col := c.cols[cell.X]
	if found {
		col[idx] = cell
	} else {
		col = append(col, Cell{})
		copy(col[idx+1:], col[idx:])
		col[idx] = cell
		c.cols[cell.X] = col
	}
	c.modified = true
	c.rev++
}

// ForEach visits every cell ordered by column then row.
func (c *Chunk) ForEach(fn func(Cell)) {
	for x := 0; x < ChunkSize; x++ {
		for _, cell := range c.cols[x] {
			fn(cell)
		}
	}
}

// Column returns the ordered cells of column x. The slice is shared; callers
// must not mutate it.
func (c *Chunk) Column(x int) []Cell {
	if x < 0 || x >= ChunkSize {
		panic(ErrOutOfBounds)
	}
	return c.cols[x]
}

func (c *Chunk) cellCount() int {
	n := 0
	for x := range c.cols {
		n += len(c.cols[x])
	}
	return n
}
