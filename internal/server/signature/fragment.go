package signature

import (
	"crypto/subtle"
	"strings"

	"github.com/revendaauto/backoffice/internal/server/contracts"
)

const fragmentLen = 3

// ExpectedFragment derives the identity fragment a signer must type: the
// last three digits of a CPF or the first three digits of a CNPJ.
func ExpectedFragment(document string) (string, error) {
	doc, err := contracts.NormalizeDocument(document)
	if err != nil {
		return "", err
	}
	if len(doc) == 11 {
		return doc[len(doc)-fragmentLen:], nil
	}
	return doc[:fragmentLen], nil
}

// DocumentKind names the document type so a signing page can tell the
// signer which digits to type. It reveals no digits.
func DocumentKind(document string) string {
	doc, err := contracts.NormalizeDocument(document)
	if err != nil {
		return ""
	}
	if len(doc) == 11 {
		return "cpf"
	}
	return "cnpj"
}

// MatchFragment compares a supplied fragment with the expected one in
// constant time.
func MatchFragment(expected, supplied string) bool {
	supplied = strings.TrimSpace(supplied)
	if len(supplied) != fragmentLen || len(expected) != fragmentLen {
		return false
	}
	for _, r := range supplied {
		if r < '0' || r > '9' {
			return false
		}
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(supplied)) == 1
}
