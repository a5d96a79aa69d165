package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Action layer.
	ErrBadRequest   = "E_BAD_REQUEST"
	ErrUnknownSpell = "E_UNKNOWN_SPELL"
	ErrCooldown     = "E_COOLDOWN"
	ErrOutOfRange   = "E_OUT_OF_RANGE"
	ErrBadMaterial  = "E_BAD_MATERIAL"
	ErrInternal     = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrBadRequest:      {},
	ErrUnknownSpell:    {},
	ErrCooldown:        {},
	ErrOutOfRange:      {},
	ErrBadMaterial:     {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
