// Package indicator turns semantic feedback signals into LED ring commands.
//
//	idle       off
//	scanning   purple, flashing
//	enrolling  purple, breathing
//	success    blue, solid for the dwell time, then off
//	error      red, solid for the dwell time, then off
package indicator
