package keyserver

import (
	"encoding/base64"
	"strconv"
)

func encodeBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// subjectFromKeyID renders key_id as the envelope's canonical-string
// subject (spec §4.1, §4.2: get_secret_key's action verb carries key_id
// as its subject).
func subjectFromKeyID(keyID uint32) string {
	return strconv.FormatUint(uint64(keyID), 10)
}
