// Package libvlc implements an engine on top of libvlc. The real
// implementation requires building with the tag "with_libvlc".
package libvlc
