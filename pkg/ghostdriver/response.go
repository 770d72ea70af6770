package ghostdriver

import (
	"encoding/json"
	"fmt"
	"net/http"

	apperrors "github.com/odvcencio/ghostdriver/pkg/errors"
)

// respond writes a success envelope. Encoding happens before anything is
// written so a failure still leaves the response to the router.
func respond(w http.ResponseWriter, sessionID string, value any) error {
	env := apperrors.Envelope{Status: apperrors.StatusSuccess, Value: value}
	if sessionID != "" {
		env.SessionID = &sessionID
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	w.Header().Set("Content-Type", "application/json;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(data)
	return err
}
