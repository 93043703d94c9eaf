package eventloop

import (
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/session"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/sink"
)

func toHandle(h session.Handle) sink.SessionHandle { return sink.SessionHandle(h) }
