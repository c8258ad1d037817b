package msg

import (
	"bytes"
	"strconv"
	"strings"
)

// literal ack bodies
var (
	AckOK   = []byte("success")
	AckFail = []byte("error")
)

// body prefixes
const (
	PREFIX_AGENCY  = "AGENCY_ID="
	PREFIX_WINNERS = "WINNERS="
)

// AppendAgencyId appends the AGENCY_ID=<n> body to dst
func AppendAgencyId(dst []byte, agency int) []byte {
	dst = append(dst, PREFIX_AGENCY...)
	return strconv.AppendInt(dst, int64(agency), 10)
}

// ParseAgencyId parses an AGENCY_ID=<n> body.
// Any other shape gives ErrAgencyId.
func ParseAgencyId(src []byte) (int, error) {
	key, val, found := bytes.Cut(bytes.TrimSpace(src), []byte{'='})
	if !found {
		return 0, ErrAgencyId
	}
	if strings.ToUpper(string(bytes.TrimSpace(key)))+"=" != PREFIX_AGENCY {
		return 0, ErrAgencyId
	}

	agency, err := strconv.Atoi(string(bytes.TrimSpace(val)))
	if err != nil || agency <= 0 {
		return 0, ErrAgencyId
	}
	return agency, nil
}

// ParseAck interprets an ack body, true for success
func ParseAck(src []byte) (bool, error) {
	switch string(bytes.TrimSpace(src)) {
	case "success":
		return true, nil
	case "error":
		return false, nil
	default:
		return false, ErrAck
	}
}

// AppendWinners appends the WINNERS=doc1,doc2,... body to dst.
// An empty docs list yields the bare WINNERS= prefix.
func AppendWinners(dst []byte, docs []string) []byte {
	dst = append(dst, PREFIX_WINNERS...)
	for i, doc := range docs {
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = append(dst, doc...)
	}
	return dst
}

// ParseWinners parses a WINNERS=doc1,doc2,... body.
// An empty list yields nil.
func ParseWinners(src []byte) ([]string, error) {
	key, val, found := bytes.Cut(bytes.TrimSpace(src), []byte{'='})
	if !found {
		return nil, ErrWinners
	}
	if strings.ToUpper(string(bytes.TrimSpace(key)))+"=" != PREFIX_WINNERS {
		return nil, ErrWinners
	}

	val = bytes.TrimSpace(val)
	if len(val) == 0 {
		return nil, nil
	}
	docs := make([]string, 0, bytes.Count(val, []byte{','})+1)
	for _, doc := range bytes.Split(val, []byte{','}) {
		docs = append(docs, string(bytes.TrimSpace(doc)))
	}
	return docs, nil
}
