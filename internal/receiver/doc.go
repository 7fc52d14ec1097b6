// Package receiver composes capture, buffering, trigger evaluation, and
// decode scheduling into a start/stoppable recording controller.
package receiver
