package tiles

import "testing"

func TestTileGetParent(t *testing.T) {
	tile := Tile{
		X: 276643,
		Y: 169357,
		Z: 19,
	}
	parent := tile.Parent()
	if parent.X != 138321 {
		t.Errorf("X should be 138321, but is %v", parent.X)
	}
	if parent.Y != 84678 {
		t.Errorf("Y should be 84678, but is %v", parent.Y)
	}
	if parent.Z != 18 {
		t.Errorf("Z should be 18, but is %v", parent.Z)
	}
}

func TestTileGetParentNegative(t *testing.T) {
	parent := Tile{X: -1, Y: -3, Z: 2}.Parent()
	if parent.X != -1 || parent.Y != -2 {
		t.Errorf("parent of (-1,-3) should be (-1,-2), but is (%v,%v)", parent.X, parent.Y)
	}
	qx, qy := Tile{X: -1, Y: -3, Z: 2}.Quadrant()
	if qx != 1 || qy != 1 {
		t.Errorf("quadrant of (-1,-3) should be (1,1), but is (%v,%v)", qx, qy)
	}
}

func TestTileChildren(t *testing.T) {
	children := Tile{X: 3, Y: 5, Z: 2}.Children()
	want := [4]Tile{{6, 10, 3}, {7, 10, 3}, {6, 11, 3}, {7, 11, 3}}
	if children != want {
		t.Errorf("children should be %v, but are %v", want, children)
	}
	for _, c := range children {
		if c.Parent() != (Tile{3, 5, 2}) {
			t.Errorf("parent of child %v should be the original tile", c)
		}
	}
}

func TestParseMapID(t *testing.T) {
	id, err := ParseMapID("1-2")
	if err != nil {
		t.Fatal(err)
	}
	if id != (MapID{1, 2}) {
		t.Errorf("unexpected id %v", id)
	}
	if id.String() != "1-2" {
		t.Errorf("String should be 1-2, but is %v", id.String())
	}
	for _, s := range []string{"", "1", "1-2-3", "a-1", "1-b"} {
		if _, err := ParseMapID(s); err == nil {
			t.Errorf("expected error for %q", s)
		}
	}
}

func TestGridSize(t *testing.T) {
	p := NewPyramid(MapID{1, 1}, "test", 0, 2, 1000, 600, 256, 256)
	cases := []struct{ z, cols, rows int }{
		{2, 4, 3},
		{1, 2, 2},
		{0, 1, 1},
		{3, 8, 5},
	}
	for _, c := range cases {
		cols, rows := p.GridSize(c.z)
		if cols != c.cols || rows != c.rows {
			t.Errorf("zoom %d: grid should be %dx%d, but is %dx%d", c.z, c.cols, c.rows, cols, rows)
		}
	}
}
