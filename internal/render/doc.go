// Package render turns a caption and a media file into a vertical video.
//
// Build produces the complete ffmpeg argument list for a single-pass
// composite and encode: blurred fill background, centered media, sharpen and
// clarity adjustments, the overlay box chosen by caption line count, and the
// caption itself. Supervisor runs the resulting command, drains its merged
// output, and reports success only when ffmpeg exits cleanly and the output
// file exists and is non-empty.
//
// Stage wires the renderer into the pipeline: one video per selected hook,
// recorded on the item as a GeneratedVideo whether or not it succeeded.
package render
