// Package cookie writes plain, signed (HMAC-SHA256) and encrypted
// (AES-256-GCM) cookies and one-time flash values.
//
// Keys are derived from each configured secret with HKDF, separately for
// signing and encryption. The first secret writes; every secret reads, which
// allows rotation. Encrypted values are bound to their cookie name.
//
// Jar gives request-scoped code (such as an identity client that rotates
// session tokens) a read/write view of cookies where every write lands on
// the response immediately.
package cookie
