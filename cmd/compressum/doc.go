// Command compressum transcodes a video into another container format by
// driving ffmpeg.
//
// Usage:
//
//	compressum compress -i holiday.mov -f mkv --fast
//	compressum compress dropped.avi -o ~/exports
//	compressum watch ~/Drop
//	compressum history
//	compressum doctor
//
// Exit status is 0 on success, 2 for an invalid request, 3 when another job
// is running, 4 when ffmpeg could not run or failed, and 130 when cancelled.
package main
