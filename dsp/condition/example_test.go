package condition_test

import (
	"fmt"

	"github.com/cwbudde/algo-rppg/dsp/condition"
)

func ExampleNormalize() {
	out, _ := condition.Normalize([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	for _, v := range out {
		fmt.Printf("%.2f ", v)
	}
	fmt.Println()
	_, err := condition.Normalize([]float64{128, 128, 128})
	fmt.Println(err)
	// Output:
	// -1.50 -0.50 -0.50 -0.50 0.00 0.00 1.00 2.00
	// condition: constant signal
}

func ExampleBandpass() {
	impulse := make([]float64, 100)
	impulse[50] = 1
	out, _ := condition.Bandpass(impulse, condition.DefaultLowHz, condition.DefaultHighHz, 30)
	fmt.Println(out[48:53])
	// Output:
	// [0.25 0.5 1 0.5 0.25]
}
