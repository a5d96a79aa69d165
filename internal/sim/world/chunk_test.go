package world

import (
	"errors"
	"testing"
)

func TestAddCellKeepsColumnsOrdered(t *testing.T) {
	c := NewChunk(0, 0)
	// Deliberately out of order.
	for _, y := range []int{9, 2, 15, 0, 7} {
		c.AddCell(Cell{X: 3, Y: y, Mat: Block})
	}
	col := c.Column(3)
	if len(col) != 5 {
		t.Fatalf("column length = %d, want 5", len(col))
	}
	for i := 1; i < len(col); i++ {
		if col[i-1].Y >= col[i].Y {
			t.Fatalf("column not strictly ordered at %d: %d >= %d", i, col[i-1].Y, col[i].Y)
		}
	}
}

func TestGetCellFoundAndInsertionIndex(t *testing.T) {
	c := NewChunk(0, 0)
	c.AddCell(Cell{X: 1, Y: 2, Mat: Block})
	c.AddCell(Cell{X: 1, Y: 8, Mat: Block})

	cell, idx, found := c.GetCell(1, 8)
	if !found || idx != 1 || cell.Y != 8 {
		t.Fatalf("GetCell(1,8) = (%v, %d, %v), want found at index 1", cell, idx, found)
	}

	// Miss between the two cells reports where an insert would go.
	_, idx, found = c.GetCell(1, 5)
	if found || idx != 1 {
		t.Fatalf("GetCell(1,5) = (_, %d, %v), want miss with insertion index 1", idx, found)
	}
	_, idx, found = c.GetCell(1, 0)
	if found || idx != 0 {
		t.Fatalf("GetCell(1,0) = (_, %d, %v), want miss with insertion index 0", idx, found)
	}
}

func TestSetCellOverwriteAndInsert(t *testing.T) {
	c := NewChunk(0, 0)
	c.AddCell(Cell{X: 4, Y: 3, Mat: Air})
	c.AddCell(Cell{X: 4, Y: 10, Mat: Air})
	if c.Modified() {
		t.Fatal("generation must not mark the chunk modified")
	}
	rev := c.Rev()

	c.SetCell(Cell{X: 4, Y: 3, Mat: Block, Color: RGBA{R: 1}})
	if got := len(c.Column(4)); got != 2 {
		t.Fatalf("overwrite grew the column to %d cells", got)
	}
	cell, _, _ := c.GetCell(4, 3)
	if cell.Mat != Block || cell.Color.R != 1 {
		t.Fatalf("overwrite did not stick: %+v", cell)
	}

	c.SetCell(Cell{X: 4, Y: 6, Mat: Block})
	col := c.Column(4)
	if len(col) != 3 || col[0].Y != 3 || col[1].Y != 6 || col[2].Y != 10 {
		t.Fatalf("insert broke ordering: %+v", col)
	}

	if !c.Modified() {
		t.Fatal("SetCell must mark the chunk modified")
	}
	if c.Rev() != rev+2 {
		t.Fatalf("rev = %d, want %d", c.Rev(), rev+2)
	}
}

func TestChunkOutOfBoundsPanics(t *testing.T) {
	c := NewChunk(0, 0)
	for _, xy := range [][2]int{{-1, 0}, {0, -1}, {ChunkSize, 0}, {0, ChunkSize}} {
		func() {
			defer func() {
				r := recover()
				err, ok := r.(error)
				if !ok || !errors.Is(err, ErrOutOfBounds) {
					t.Fatalf("GetCell(%d,%d) panic = %v, want ErrOutOfBounds", xy[0], xy[1], r)
				}
			}()
			c.GetCell(xy[0], xy[1])
		}()
	}
}
