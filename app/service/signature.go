package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// CallbackSignature signs "<id>:<amount>" so redirect targets can trust a
// status payload relayed through the browser. Empty when no secret is set.
func CallbackSignature(secret, id string, amount int64) string {
	if secret == "" {
		return ""
	}
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(id + ":" + strconv.FormatInt(amount, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}
