package witness

import "github.com/wippyai/value-witness/layout"

// ObjectRuntime provides the release operation for every reference kind.
// Words passed in are never zero.
type ObjectRuntime interface {
	// Release drops a strong reference. Thick function contexts use it too.
	Release(obj uint64)
	UnownedRelease(obj uint64)
	WeakDestroy(ref uint64)
	UnknownUnownedDestroy(ref uint64)
	UnknownWeakDestroy(ref uint64)
	BlockRelease(block uint64)
	BridgeRelease(obj uint64)
	ForeignRelease(obj uint64)
	ErrorRelease(err uint64)
}

func release(objects ObjectRuntime, kind layout.RefKind, word uint64) {
	switch kind {
	case layout.RefError:
		objects.ErrorRelease(word)
	case layout.RefNativeStrong, layout.RefThickFunction:
		objects.Release(word)
	case layout.RefNativeUnowned:
		objects.UnownedRelease(word)
	case layout.RefNativeWeak:
		objects.WeakDestroy(word)
	case layout.RefUnknownUnowned:
		objects.UnknownUnownedDestroy(word)
	case layout.RefUnknownWeak:
		objects.UnknownWeakDestroy(word)
	case layout.RefBlock:
		objects.BlockRelease(word)
	case layout.RefBridge:
		objects.BridgeRelease(word)
	case layout.RefForeignObject:
		objects.ForeignRelease(word)
	}
}
