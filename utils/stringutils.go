package utils

import (
	"runtime"
	"unicode"
	"unicode/utf8"

	"github.com/kasbot/kasbot-server/chaincfg"
	"github.com/kasbot/kasbot-server/constdef"
)

func IsBlank(str string) bool {
	if str == "" {
		return true
	}

	for _, c := range str {
		if !unicode.IsSpace(c) {
			return false
		}
	}
	return true
}

func GetNodeDesc() string {
	systemName := runtime.GOOS
	systemArch := runtime.GOARCH
	goVersion := runtime.Version()
	return "Indexer-v" + chaincfg.IndexerBackendVersion + "/" + "KasBot-v" + chaincfg.BotBackendVersion + "/" + systemName + "-" + systemArch + "/" + goVersion
}

// CheckUserValidity checks whether the given chat user id is valid:
// 1. the length of the id should between 1-100 characters.
// 2. control characters and spaces are not allowed.
func CheckUserValidity(user string) bool {
	userLen := utf8.RuneCountInString(user)
	if userLen < constdef.MinUserLength || userLen > constdef.MaxUserLength || !utf8.ValidString(user) {
		return false
	}
	for _, ch := range user {
		if unicode.IsSpace(ch) || unicode.IsControl(ch) {
			return false
		}
	}
	return true
}

// CheckMessageIDValidity checks the id of a chat message.  The id is
// optional, when given it follows the rules of a user id with a larger bound.
func CheckMessageIDValidity(messageID string) bool {
	if messageID == "" {
		return true
	}
	if utf8.RuneCountInString(messageID) > constdef.MaxMessageIDLength || !utf8.ValidString(messageID) {
		return false
	}
	for _, ch := range messageID {
		if unicode.IsSpace(ch) || unicode.IsControl(ch) {
			return false
		}
	}
	return true
}
