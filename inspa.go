// Package inspa implements the on-disk container format shared by the
// installer Builder and the installer Runtime: a stub executable with a
// JSON header, a compressed payload, and a trailing 72-byte footer
// spliced onto it.
//
// Subpackages implement the individual pipeline stages (config, manifest,
// digest, compressor, header, footer, container, extractor, script,
// envmutate); this package only holds the few constants and process-wide
// conveniences (interruption, at-exit hooks, version string) that every
// stage shares.
package inspa

// FooterMagic is the 8-byte ASCII signature at the start of the trailing
// 72-byte footer record (spec.md §3.3).
const FooterMagic = "INSPAF01"

// LegacyHeaderMagic is the 7-character ASCII signature the Container
// Reader's legacy scan path looks for when no footer is present (spec.md
// §4.6 step 2). The reader treats it as the start of an 8-byte magic
// field: the header length prefix is read at the signature's offset + 8.
const LegacyHeaderMagic = "INSPRO1"

// FooterSize is the fixed byte length of the trailing footer record.
const FooterSize = 72

// LegacyTailSize is the byte length of the raw SHA-256 digest written
// immediately before the footer for readers that predate it.
const LegacyTailSize = 32

// SupportedSchemaVersions lists the header schema_version values this
// implementation can read. schema_version 1 is the current (footer-based)
// generation; readers additionally fall back to an even older,
// footer-less cpio generation handled entirely by internal/legacy and
// carrying no schema_version at all.
var SupportedSchemaVersions = map[int]bool{
	1: true,
}
