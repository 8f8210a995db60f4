// Package fingerprint derives stable identities for error events. It is pure
// computation: no I/O, no randomness, stable across process restarts.
package fingerprint

import (
	"fmt"
	"strings"
)

// ContextKey is the context-map field consumed verbatim when the caller
// supplies its own grouping key.
const ContextKey = "fingerprint"

// stackFrameCount is how many leading stack frames participate in the
// derived signature. Deeper frames churn too much across deploys.
const stackFrameCount = 3

// FromEvent returns the fingerprint for an event. An explicit fingerprint in
// the context map wins; otherwise one is derived from name, message, and the
// truncated stack signature.
func FromEvent(name, message, stack string, context map[string]string) string {
	if fp, ok := context[ContextKey]; ok && fp != "" {
		return fp
	}
	return Derive(name, message, stack)
}

// Derive computes a deterministic fingerprint from the error name, message,
// and the first few stack frames. Absence of a stack still yields a stable
// fingerprint from name+message alone.
func Derive(name, message, stack string) string {
	return fmt.Sprintf("%x", djb2(name+message+stackSignature(stack)))
}

// stackSignature joins the first stackFrameCount non-empty trimmed lines of
// the raw trace.
func stackSignature(stack string) string {
	if stack == "" {
		return ""
	}

	frames := make([]string, 0, stackFrameCount)
	for _, line := range strings.Split(stack, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		frames = append(frames, line)
		if len(frames) == stackFrameCount {
			break
		}
	}
	return strings.Join(frames, "\n")
}

// djb2 is the classic non-cryptographic string hash: h = h*33 + c.
func djb2(s string) uint32 {
	h := uint32(5381)
	for i := 0; i < len(s); i++ {
		h = ((h << 5) + h) + uint32(s[i])
	}
	return h
}
