// Package blob finds and decodes serialized text-table tuples inside raw
// BLOB bytes.
//
// A blob is a fragment of a SQL dump holding many statements of the form
//
//	INSERT INTO `text` VALUES (41,_binary 'payload',_binary 'flags'),(42,...);
//
// The package never parses SQL. [Locate] finds the opening of the tuple for a
// record id by byte search, and [Extractor.Extract] walks that tuple with a
// small state machine to recover its two quoted binary fields. All offsets
// are byte offsets; payloads are kept as bytes until a [Codec] decodes them.
package blob
