// Package textutil provides text processing utilities for title
// normalization and filename sanitization.
//
// The primary use cases are:
//   - Normalizing media titles for catalog matching (bracketed-noise
//     removal, diacritic folding, feat./ft. suffix stripping)
//   - Splitting "Artist - Title" strings into their components
//   - Sanitizing filenames and path segments for safe filesystem use
//
// All helpers normalize their output to Unicode NFC so that filenames
// and tag values compare consistently across platforms.
package textutil
