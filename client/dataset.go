package client

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/lotwire/lotwire/msg"
)

// ReadBets reads an agency dataset in CSV form, one bet per row shaped
// first_name,last_name,document,birthdate,number, stamping each bet with
// the given agency id.
func ReadBets(r io.Reader, agency int) ([]msg.Bet, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 5

	var bets []msg.Bet
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return bets, nil
		}
		if err != nil {
			return nil, err
		}

		number, err := strconv.Atoi(rec[4])
		if err != nil {
			return nil, fmt.Errorf("row %d: number: %w", len(bets)+1, msg.ErrValue)
		}
		bets = append(bets, msg.Bet{
			Agency:    agency,
			FirstName: rec[0],
			LastName:  rec[1],
			Document:  rec[2],
			Birthdate: rec[3],
			Number:    number,
		})
	}
}

// ReadBetsJSON reads an agency dataset with one JSON bet object per line,
// stamping each bet with the given agency id.
func ReadBetsJSON(r io.Reader, agency int) ([]msg.Bet, error) {
	var bets []msg.Bet

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 64*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}

		var bet msg.Bet
		if err := bet.FromJSON(line); err != nil {
			return nil, fmt.Errorf("line %d: %w", len(bets)+1, err)
		}
		bet.Agency = agency
		bets = append(bets, bet)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return bets, nil
}
