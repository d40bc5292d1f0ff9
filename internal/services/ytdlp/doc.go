// Package ytdlp wraps the yt-dlp command line tool for playlist listings
// and media downloads.
//
// Listings come from flat playlist JSON dumps so previews never download
// media. Downloads stream tool output line by line, surfacing progress
// percentages and raw diagnostics to the caller; spawned process handles
// are reported through a hook so cancellation can reach them.
package ytdlp
