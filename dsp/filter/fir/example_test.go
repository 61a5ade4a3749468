package fir_test

import (
	"fmt"

	"github.com/cwbudde/algo-rppg/dsp/filter/fir"
)

func ExampleApplyCentered() {
	out, _ := fir.ApplyCentered([]float64{0.25, 0.5, 0.25}, []float64{0, 0, 4, 0, 0})
	fmt.Println(out)
	// Output:
	// [0 1 2 1 0]
}
