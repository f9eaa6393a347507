package grid_test

import (
	"fmt"

	"github.com/matzehuels/lanemap/pkg/grid"
)

func ExampleParse() {
	c, err := grid.Parse("c07")
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	s, _ := grid.Format(c)
	fmt.Printf("row=%d col=%d canonical=%s\n", c.Row, c.Col, s)
	// Output:
	// row=2 col=6 canonical=C7
}

func ExampleGeometry_Point() {
	g := grid.DefaultGeometry()
	x, y := g.Point(grid.MustParse("B3"))
	fmt.Println(x, y)
	// Output:
	// 650 230
}
