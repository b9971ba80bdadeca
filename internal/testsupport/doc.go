// Package testsupport provides helpers shared by compressum tests: temp-dir
// configs, fake transcoder binaries, placeholder inputs and a history store.
package testsupport
