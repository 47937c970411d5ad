package overlay

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/goliatone/go-overlays/internal/decode"
)

// ParseOverlay decodes the wire/storage form of an overlay. Parsing is total
// over any JSON input: structural problems and unknown modification types
// come back as errors, and a malformed signature envelope (wrong alg tag,
// garbage base64) parses cleanly — it simply fails verification later.
func ParseOverlay(raw []byte) (OverlaySpec, error) {
	decoder := decode.NewDecoder(
		decode.WithUseNumber[OverlaySpec](),
		decode.WithPreHook[OverlaySpec](trimIdentity),
	)
	spec, err := decoder.DecodeBytes(decode.Context{Source: "wire"}, raw)
	if err != nil {
		return OverlaySpec{}, fmt.Errorf("overlay: parse: %w", err)
	}
	return spec, nil
}

// MarshalOverlay renders the wire form of an overlay. The output round-trips
// through ParseOverlay and, because the signing payload is rebuilt through
// the canonicalizer on every verification, a marshal/parse cycle never
// invalidates a signature.
func MarshalOverlay(spec OverlaySpec) ([]byte, error) {
	return json.Marshal(spec)
}

func trimIdentity(_ decode.Context, payload map[string]any) (map[string]any, error) {
	for _, key := range []string{"overlayId", "version"} {
		if value, ok := payload[key].(string); ok {
			payload[key] = strings.TrimSpace(value)
		}
	}
	return payload, nil
}
