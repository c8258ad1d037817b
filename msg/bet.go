package msg

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	jsp "github.com/buger/jsonparser"
)

// Bet is a single lottery bet submitted by an agency.
type Bet struct {
	Agency    int    // submitting agency id
	FirstName string // gambler first name
	LastName  string // gambler last name
	Document  string // gambler national id, opaque
	Birthdate string // YYYY-MM-DD, opaque
	Number    int    // the lottery guess
}

// wire keys of the bet text form, in canonical order
const (
	KEY_AGENCY    = "AGENCY_ID"
	KEY_FIRST     = "NOMBRE"
	KEY_LAST      = "APELLIDO"
	KEY_DOCUMENT  = "DOCUMENTO"
	KEY_BIRTHDATE = "NACIMIENTO"
	KEY_NUMBER    = "NUMERO"
)

// required key bits for FromText
const (
	seen_agency = 1 << iota
	seen_first
	seen_last
	seen_document
	seen_birthdate
	seen_number
	seen_all = 1<<iota - 1
)

// FromText parses the KEY=value,KEY=value,... form into bet.
// Keys are case-insensitive and may come in any order; whitespace around
// keys and values is trimmed; empty segments and segments without '='
// are skipped. A missing required key gives ErrBet.
func (bet *Bet) FromText(src []byte) error {
	var seen int

	for _, seg := range bytes.Split(src, []byte{','}) {
		seg = bytes.TrimSpace(seg)
		if len(seg) == 0 {
			continue
		}

		key, val, found := bytes.Cut(seg, []byte{'='})
		if !found {
			continue
		}
		k := strings.ToUpper(string(bytes.TrimSpace(key)))
		v := string(bytes.TrimSpace(val))

		var err error
		switch k {
		case KEY_AGENCY:
			bet.Agency, err = strconv.Atoi(v)
			seen |= seen_agency
		case KEY_FIRST:
			bet.FirstName = v
			seen |= seen_first
		case KEY_LAST:
			bet.LastName = v
			seen |= seen_last
		case KEY_DOCUMENT:
			bet.Document = v
			seen |= seen_document
		case KEY_BIRTHDATE:
			bet.Birthdate = v
			seen |= seen_birthdate
		case KEY_NUMBER:
			bet.Number, err = strconv.Atoi(v)
			seen |= seen_number
		}
		if err != nil {
			return fmt.Errorf("%s: %w", k, ErrBet)
		}
	}

	if seen != seen_all {
		return ErrBet
	}
	return nil
}

// AppendText appends the KEY=value,... form of bet to dst, in canonical
// key order.
func (bet *Bet) AppendText(dst []byte) []byte {
	dst = append(dst, KEY_AGENCY+"="...)
	dst = strconv.AppendInt(dst, int64(bet.Agency), 10)
	dst = append(dst, ","+KEY_FIRST+"="...)
	dst = append(dst, bet.FirstName...)
	dst = append(dst, ","+KEY_LAST+"="...)
	dst = append(dst, bet.LastName...)
	dst = append(dst, ","+KEY_DOCUMENT+"="...)
	dst = append(dst, bet.Document...)
	dst = append(dst, ","+KEY_BIRTHDATE+"="...)
	dst = append(dst, bet.Birthdate...)
	dst = append(dst, ","+KEY_NUMBER+"="...)
	return strconv.AppendInt(dst, int64(bet.Number), 10)
}

// String dumps bet to JSON
func (bet *Bet) String() string {
	return string(bet.ToJSON(nil))
}

// ToJSON appends JSON representation of bet to dst (may be nil to allocate)
func (bet *Bet) ToJSON(dst []byte) []byte {
	dst = append(dst, `{"agency":`...)
	dst = strconv.AppendInt(dst, int64(bet.Agency), 10)
	dst = append(dst, `,"first_name":`...)
	dst = strconv.AppendQuote(dst, bet.FirstName)
	dst = append(dst, `,"last_name":`...)
	dst = strconv.AppendQuote(dst, bet.LastName)
	dst = append(dst, `,"document":`...)
	dst = strconv.AppendQuote(dst, bet.Document)
	dst = append(dst, `,"birthdate":`...)
	dst = strconv.AppendQuote(dst, bet.Birthdate)
	dst = append(dst, `,"number":`...)
	dst = strconv.AppendInt(dst, int64(bet.Number), 10)
	return append(dst, '}')
}

// FromJSON reads bet JSON representation from src.
// Absent keys leave the corresponding fields untouched.
func (bet *Bet) FromJSON(src []byte) error {
	return jsp.ObjectEach(src, func(key, val []byte, typ jsp.ValueType, _ int) (err error) {
		switch string(key) {
		case "agency":
			var v int64
			v, err = jsp.ParseInt(val)
			bet.Agency = int(v)
		case "first_name":
			bet.FirstName, err = jsp.ParseString(val)
		case "last_name":
			bet.LastName, err = jsp.ParseString(val)
		case "document":
			bet.Document, err = jsp.ParseString(val)
		case "birthdate":
			bet.Birthdate, err = jsp.ParseString(val)
		case "number":
			var v int64
			v, err = jsp.ParseInt(val)
			bet.Number = int(v)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", key, ErrValue)
		}
		return nil
	})
}
