// Package frames is the boundary to video tooling: it extracts a single
// representative still per video with ffmpeg (input to the rendition
// catalog) and submits adaptive-bitrate transcode jobs to the external
// batch service. Full transcoding never happens in this process.
package frames
