// Package ui renders loadwatch's terminal output.
//
// Everything here is plain string rendering on top of Lip Gloss, so commands
// can print results without taking over the terminal:
//
//	Spinner      - animated indicator while a collection cycle runs
//	Sparkline    - recent load or memory history in one line
//	Progress bar - memory usage with green/amber/red thresholds
//	Tables       - host listings, sample listings and cycle reports
//
// DisableColors switches to monochrome output for --no-color and NO_COLOR.
package ui
