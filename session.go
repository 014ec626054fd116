package qtoggleserver

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"

	"github.com/rajtan/qtoggleserver/pkg/constants"
)

// newSessionID generates the session identifier sent with every listen
// request. The server uses it to queue events between successive polls,
// so it must stay stable for the lifetime of a client and be unique
// across clients.
func newSessionID() string {
	sum := sha256.Sum256([]byte(uuid.NewString()))
	return constants.SessionIDPrefix + hex.EncodeToString(sum[:])[:constants.SessionIDHashLength]
}
