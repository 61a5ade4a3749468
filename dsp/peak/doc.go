// Package peak locates dominant local maxima in a conditioned pulse signal.
//
// [Find] keeps samples that exceed a fraction of the window's absolute peak
// and are strictly greater than both neighbours, then enforces a minimum
// spacing greedily from the left. The first and last samples are never peaks.
package peak
