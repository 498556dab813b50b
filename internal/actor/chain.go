package actor

import "context"

type chainKey struct{}

// link is one frame of the call chain. Frames are immutable and shared
// between the contexts derived from them.
type link struct {
	addr   Address
	parent *link
}

func withChain(ctx context.Context, addr Address) context.Context {
	parent, _ := ctx.Value(chainKey{}).(*link)
	return context.WithValue(ctx, chainKey{}, &link{addr: addr, parent: parent})
}

func onChain(ctx context.Context, addr Address) bool {
	for l, _ := ctx.Value(chainKey{}).(*link); l != nil; l = l.parent {
		if l.addr == addr {
			return true
		}
	}
	return false
}

// Chain returns the addresses of the handlers suspended on the current call
// path, innermost first.
func Chain(ctx context.Context) []Address {
	var out []Address
	for l, _ := ctx.Value(chainKey{}).(*link); l != nil; l = l.parent {
		out = append(out, l.addr)
	}
	return out
}
