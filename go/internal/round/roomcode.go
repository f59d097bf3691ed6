package round

import (
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const roomCodeLength = 6

// newRoomCode returns a random 6 character uppercase base36 code.
func newRoomCode() string {
	id := uuid.New()
	n := binary.BigEndian.Uint64(id[:8])
	code := strings.ToUpper(strconv.FormatUint(n, 36))
	if len(code) < roomCodeLength {
		code = strings.Repeat("0", roomCodeLength-len(code)) + code
	}
	return code[:roomCodeLength]
}

// normalizeRoomCode upper-cases code and checks its shape.
func normalizeRoomCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != roomCodeLength {
		return "", ErrInvalidRoomCode
	}
	for _, c := range code {
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return "", ErrInvalidRoomCode
		}
	}
	return code, nil
}
