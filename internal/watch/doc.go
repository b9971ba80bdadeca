// Package watch feeds files dropped into a directory to a handler, one at a
// time. It is the headless counterpart of drag-and-drop intake.
package watch
