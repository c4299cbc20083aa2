package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"cpaportal/internal/service"
	"cpaportal/internal/validation"
)

func respondWithError(w http.ResponseWriter, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		log.Printf("%s: %v", logMsg, err)
	}

	http.Error(w, userMsg, status)
}

// formError maps an expected service error to the message shown above a
// form. ok is false for unexpected errors, which callers answer with a 500.
func formError(err error) (msg string, ok bool) {
	var vErr validation.ValidationError
	switch {
	case errors.As(err, &vErr):
		return vErr.Message, true
	case errors.Is(err, service.ErrInvalidCredentials):
		return MsgInvalidLogin, true
	case errors.Is(err, service.ErrInvalidToken):
		return MsgInvalidToken, true
	case errors.Is(err, service.ErrDuplicateEmail):
		return MsgEmailInUse, true
	case errors.Is(err, service.ErrWrongOldPassword):
		return MsgIncorrectPassword, true
	case errors.Is(err, service.ErrNotFound):
		return MsgUserNotFound, true
	default:
		return "", false
	}
}

type jsonResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

func respondWithJSONError(w http.ResponseWriter, logMsg string, err error) {
	log.Printf("%s: %v", logMsg, err)
	writeJSON(w, http.StatusInternalServerError, jsonResult{Success: false, Message: ErrInternalServerError})
}
