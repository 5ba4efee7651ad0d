package types

type Backend string

const (
	BackendUndefined = Backend("")
	BackendLibVLC    = Backend("libvlc")
	BackendMPV       = Backend("mpv")
	BackendDummy     = Backend("dummy")
)
