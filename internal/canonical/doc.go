// Package canonical provides the byte-exact serialization used for every
// digest in dlog.
//
// Two processes holding identical ledger contents must produce identical
// bytes, so this package owns the only encoding that feeds a hash:
//   - RFC 8785 canonical JSON (keys ordered by UTF-16 code units)
//   - NFC-normalized strings, no HTML escaping
//   - integers only; floats and null are rejected
//
// Hashes are domain separated: SHA256(domain || 0x00 || data).
package canonical
