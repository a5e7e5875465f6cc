// Package dab -- short for "data access broker" -- contains functions
// for finding and loading the well-known files of a catalog tree:
// dataset index files, table sidecars, and catalog metadata.
//
// Any filesystem reads the higher layers need go through here, so that the
// magic filenames, suffixes, and parse behaviors stay in one place.
package dab
