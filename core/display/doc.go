// Package display multiplexes rate frames onto banks of seven segment digits.
//
// The renderer walks every digit position in turn and keeps each one for a
// fixed number of ticks. Brightness is a duty cycle: at level L the position
// is lit on L+1 of those ticks. Once per multiplex cycle the frame is rebuilt
// from the rate store and the mode buttons are sampled.
//
// A group that cannot show a number shows a status pattern instead, one
// digit per start-up stage:
//
//	"   "  network not connected
//	"-  "  connected, clock not synchronised
//	"-- "  clock synchronised, rate not obtained yet
//
// A group showing "-1 " holds a rate of -100.00 or less and " 1 ." a rate of
// 1000.00 or more.
package display
