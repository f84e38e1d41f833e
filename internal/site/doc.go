// Package site builds a whole source tree: it discovers content files, renders
// them through the article pipeline on a bounded worker pool and writes the
// outputs to the destination directory. A build index keyed by source path
// lets incremental builds skip documents whose checksum did not change.
package site
